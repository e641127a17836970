// Package xact holds the transaction-side collaborators of the member data
// layer: the advise query record, transaction status, the Transaction and
// Router interfaces, and Local, an in-process router that commits and aborts
// on request.
//
// Cross-cluster propagation and the decision of when to commit belong to the
// distributed transaction service, not to this package. Local exists so the
// member layer can be exercised end to end in one process.
package xact
