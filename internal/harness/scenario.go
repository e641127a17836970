package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/member"
)

// Scenario drives one member client through a sequence of steps and then
// checks the resulting state.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Schema is a directory of CUE message declarations. When set, unknown
	// fields are stripped from stored messages. Relative paths resolve
	// against the scenario file's directory.
	Schema string `yaml:"schema,omitempty"`

	// KV selects the mirror backend: "memory" (default), "sqlite" or
	// "none".
	KV string `yaml:"kv,omitempty"`

	Audit *AuditSpec `yaml:"audit,omitempty"`

	Registrations []RegistrationSpec `yaml:"registrations"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// AuditSpec overrides the client's audit ring.
type AuditSpec struct {
	Capacity int    `yaml:"capacity"`
	Policy   string `yaml:"policy"`
}

// RegistrationSpec declares a registration by name.
type RegistrationSpec struct {
	Name     string   `yaml:"name"`
	Keyspec  string   `yaml:"keyspec"`
	Category string   `yaml:"category"`
	Type     string   `yaml:"type"`
	Flags    []string `yaml:"flags,omitempty"`

	// Shard stores the registration's objects in a SQLite shard instead of
	// its in-memory table.
	Shard bool `yaml:"shard,omitempty"`
}

// Step ops.
const (
	OpBegin   = "begin"
	OpCommit  = "commit"
	OpAbort   = "abort"
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpGet     = "get"
	OpPublish = "publish"
	OpList    = "list"
	OpDrain   = "drain"
)

// Step is one client call or transaction control action.
type Step struct {
	Op string `yaml:"op"`

	// Xact names the transaction the step runs in. Empty means outside any
	// transaction. begin, commit and abort require it.
	Xact string `yaml:"xact,omitempty"`

	Reg string `yaml:"reg,omitempty"`

	// At is an xpath naming the key. For publish it is the keyspec the
	// message is anchored at.
	At string `yaml:"at,omitempty"`

	// Minikey addresses the object by its key leaf values instead of At.
	Minikey []any `yaml:"minikey,omitempty"`

	Message map[string]any `yaml:"message,omitempty"`

	// Replace substitutes the stored message on update instead of merging.
	Replace bool `yaml:"replace,omitempty"`

	// Async defers the call onto the client's executor until the next
	// drain step.
	Async bool `yaml:"async,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks a step's outcome. Status defaults to "success".
type Expect struct {
	Status string `yaml:"status,omitempty"`
	Code   string `yaml:"code,omitempty"`

	// Message is a subset match on the body returned by get.
	Message map[string]any `yaml:"message,omitempty"`

	// Count is the number of objects a publish wrote or a list returned.
	Count *int `yaml:"count,omitempty"`

	// Keys is the exact key order a list returned.
	Keys []string `yaml:"keys,omitempty"`
}

// Assertion checks final state after all steps ran.
type Assertion struct {
	// Type is one of object, absent, count, serial, kv, audit, advised.
	Type string `yaml:"type"`

	Reg  string `yaml:"reg,omitempty"`
	At   string `yaml:"at,omitempty"`
	Xact string `yaml:"xact,omitempty"`

	// Message is a subset match on the stored body (object).
	Message map[string]any `yaml:"message,omitempty"`

	// Count is the committed object count (count) or the serial (serial).
	Count int `yaml:"count,omitempty"`

	// Present says whether the key is mirrored (kv).
	Present bool `yaml:"present,omitempty"`

	// Actions is the audit trail (audit) or the router's advise journal
	// (advised), in order.
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion types.
const (
	AssertObject  = "object"
	AssertAbsent  = "absent"
	AssertCount   = "count"
	AssertSerial  = "serial"
	AssertKV      = "kv"
	AssertAudit   = "audit"
	AssertAdvised = "advised"
)

// LoadScenario reads a scenario file, rejecting unknown fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if s.Schema != "" && !filepath.IsAbs(s.Schema) {
		s.Schema = filepath.Join(filepath.Dir(path), s.Schema)
	}
	return s, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Registrations) == 0 {
		return fmt.Errorf("registrations list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	switch s.KV {
	case "", "memory", "sqlite", "none":
	default:
		return fmt.Errorf("kv must be \"memory\", \"sqlite\" or \"none\", got %q", s.KV)
	}
	if s.Audit != nil {
		if s.Audit.Capacity < 1 {
			return fmt.Errorf("audit.capacity must be positive")
		}
		if _, err := member.ParseAuditPolicy(s.Audit.Policy); err != nil {
			return fmt.Errorf("audit.policy: %w", err)
		}
	}

	regs := make(map[string]bool)
	for i, r := range s.Registrations {
		if r.Name == "" {
			return fmt.Errorf("registrations[%d]: name is required", i)
		}
		if regs[r.Name] {
			return fmt.Errorf("registrations[%d]: duplicate name %q", i, r.Name)
		}
		regs[r.Name] = true
		cat, err := keyspec.ParseCategory(r.Category)
		if err != nil {
			return fmt.Errorf("registrations[%d]: %w", i, err)
		}
		if _, err := keyspec.ParseXPath(r.Keyspec, cat); err != nil {
			return fmt.Errorf("registrations[%d]: %w", i, err)
		}
		if _, err := member.ParseRegFlags(r.Flags...); err != nil {
			return fmt.Errorf("registrations[%d]: %w", i, err)
		}
	}

	for i, st := range s.Steps {
		if err := validateStep(st, regs); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a, regs); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(st Step, regs map[string]bool) error {
	switch st.Op {
	case OpBegin, OpCommit, OpAbort:
		if st.Xact == "" {
			return fmt.Errorf("%s needs xact", st.Op)
		}
		return nil
	case OpDrain:
		return nil
	case OpCreate, OpUpdate, OpDelete, OpGet, OpPublish, OpList:
	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
	if !regs[st.Reg] {
		return fmt.Errorf("%s: unknown registration %q", st.Op, st.Reg)
	}
	if st.At != "" && st.Minikey != nil {
		return fmt.Errorf("%s: at and minikey are exclusive", st.Op)
	}
	switch st.Op {
	case OpCreate, OpUpdate, OpPublish:
		if st.Message == nil {
			return fmt.Errorf("%s needs a message", st.Op)
		}
	}
	if st.Op == OpPublish && st.At == "" {
		return fmt.Errorf("publish needs at")
	}
	if st.Async && st.Op != OpCreate && st.Op != OpUpdate && st.Op != OpDelete {
		return fmt.Errorf("%s cannot be async", st.Op)
	}
	return nil
}

func validateAssertion(a Assertion, regs map[string]bool) error {
	switch a.Type {
	case AssertAdvised:
		return nil
	case AssertObject, AssertAbsent, AssertKV, AssertAudit:
		if a.At == "" {
			return fmt.Errorf("%s needs at", a.Type)
		}
	case AssertCount, AssertSerial:
		if a.Count < 0 {
			return fmt.Errorf("%s: count must be non-negative", a.Type)
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	if !regs[a.Reg] {
		return fmt.Errorf("%s: unknown registration %q", a.Type, a.Reg)
	}
	return nil
}
