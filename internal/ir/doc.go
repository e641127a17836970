// Package ir provides the message model stored by member data tables.
//
// This package contains value types only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - No float types anywhere: numbers are int64 so encodings are deterministic
//   - Null has no canonical form and therefore never appears in a key
//   - Canonical encoding is RFC 8785 JSON with NFC-normalized strings
//   - Merge appends lists; callers that want replacement replace the message
package ir
