package audit

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/tos-network/gaudit/crypto"
	"github.com/tos-network/gaudit/validator"
)

// Storage backends.
const (
	StoreFile    = "file"
	StoreLevelDB = "leveldb"
	StoreMemory  = "memory"
)

// Destinations for administratively rejected blocks.
const (
	RejectToChain    = "chain"
	RejectToAuditLog = "auditlog"
)

// Roles a user can hold.
const (
	RoleSubmitter = "submitter"
	RoleAuthority = "authority"
)

// User maps a login name to its role.
type User struct {
	Name string
	Role string
}

// Defaults contains the settings of a five validator deployment keeping the
// ledger in blockchain_data.json.
var Defaults = Config{
	DataDir:          ".",
	Store:            StoreFile,
	ChainFile:        "blockchain_data.json",
	AuditLogFile:     "rejected_blocks.json",
	RejectMode:       RejectToChain,
	SnapshotInterval: 128,
	DatabaseCache:    16,
	DatabaseHandles:  16,
	Validators:       5,
	ExtraNodes:       3,
	SignerType:       crypto.SignerTypeEd25519,
	Users:            DefaultUsers(5),
}

// DefaultUsers returns the two submitters alice and maria plus one authority
// per validator, named after it.
func DefaultUsers(validators int) []User {
	users := []User{
		{Name: "alice", Role: RoleSubmitter},
		{Name: "maria", Role: RoleSubmitter},
	}
	for i := 1; i <= validators; i++ {
		users = append(users, User{Name: validator.ValidatorID(i), Role: RoleAuthority})
	}
	return users
}

// Config contains the settings of the audit service.
type Config struct {
	// DataDir is the base for relative file and database paths.
	DataDir string

	// Storage options
	Store            string // "file", "leveldb" or "memory"
	ChainFile        string `toml:",omitempty"` // Ledger document when Store is "file"
	AuditLogFile     string `toml:",omitempty"` // Rejected block document when Store is "file"
	SnapshotInterval uint64 // Blocks between leveldb snapshots, 0 disables them
	DatabaseCache    int    // Megabytes of leveldb cache
	DatabaseHandles  int    `toml:"-"`

	// RejectMode selects where rejected blocks end up: "chain" appends them
	// to the ledger, "auditlog" keeps them in a separate log.
	RejectMode string

	// Validator options
	Validators int
	ExtraNodes int
	SignerType string
	KeyDir     string `toml:",omitempty"` // Persist validator keys here
	KeySeed    string `toml:",omitempty"` // Derive validator keys from this secret

	// Users is the identity table. An empty table means DefaultUsers.
	Users []User
}

// ResolvePath resolves name against the data directory.
func (c *Config) ResolvePath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// ValidatorConfig returns the registry settings.
func (c *Config) ValidatorConfig() validator.Config {
	keyDir := c.KeyDir
	if keyDir != "" {
		keyDir = c.ResolvePath(keyDir)
	}
	return validator.Config{
		Validators: c.Validators,
		ExtraNodes: c.ExtraNodes,
		SignerType: c.SignerType,
		KeyDir:     keyDir,
		KeySeed:    c.KeySeed,
	}
}

// Validate checks the configuration for unsupported values.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreLevelDB, StoreMemory:
	default:
		return fmt.Errorf("audit: unknown store %q", c.Store)
	}
	switch c.RejectMode {
	case RejectToChain, RejectToAuditLog:
	default:
		return fmt.Errorf("audit: unknown reject mode %q", c.RejectMode)
	}
	if c.Validators <= 0 {
		return validator.ErrNoValidators
	}
	if c.ExtraNodes < 0 {
		return errors.New("audit: negative extra node count")
	}
	if _, err := crypto.CanonicalSignerType(c.SignerType); err != nil {
		return err
	}
	for _, u := range c.Users {
		if u.Name == "" {
			return errors.New("audit: user without a name")
		}
		if u.Role != RoleSubmitter && u.Role != RoleAuthority {
			return fmt.Errorf("audit: user %s has unknown role %q", u.Name, u.Role)
		}
	}
	return nil
}
