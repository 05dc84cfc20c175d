package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DatabaseSchemePostgres is the postgres database scheme identifier
	DatabaseSchemePostgres = "postgres"
	// DatabaseSchemeSQLite is the sqlite database scheme identifier
	DatabaseSchemeSQLite = "sqlite"
)

// Source selects the ledger event source implementation.
const (
	SourceInProcess = "inprocess"
	SourceCometBFT  = "cometbft"
)

// AI collaborator implementations. Selected once at startup; there is no
// runtime branching between mock and real paths elsewhere.
const (
	AIModeLocal = "local"
	AIModeGenAI = "genai"
)

// Storage collaborator implementations.
const (
	StorageModeLocal = "local"
	StorageModeIPFS  = "ipfs"
)

type Config struct {
	Source    string // inprocess or cometbft
	RPCURL    string // cometbft RPC base URL when Source is cometbft
	WSPath    string
	DBDialect string // postgres or sqlite
	DBDsn     string // DSN string passed to GORM driver

	RelayerAddr   string        // ledger identity used for answer recording
	PollInterval  time.Duration // event poll cadence
	SweepInterval time.Duration // closed-round finalize sweep cadence
	AdminAddr     string        // admin HTTP listen address, empty disables

	AIMode       string
	GenAIAPIKey  string
	GenAIModel   string
	StorageMode  string
	IPFSURL      string
	StorageDir   string

	MinStakeUnits  uint64
	MinFeeUnits    uint64
	MaxQuestionLen int
	LockPeriod     time.Duration
	VotingWindow   time.Duration
	QuorumPct      uint64
	ApprovalPct    uint64
	SlashPct       uint64
	RewardPct      uint64

	Debug bool // if true: show logs, no TUI; if false: no logs, show TUI
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func getenvUint(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// parseDatabaseURL interprets DATABASE_URL and returns (dialect, dsn).
// Supported schemes: postgres, postgresql, sqlite.
func parseDatabaseURL(databaseURL string) (string, string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", err
	}
	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case DatabaseSchemePostgres, "postgresql":
		// GORM postgres driver accepts URL DSN as-is
		return DatabaseSchemePostgres, databaseURL, nil
	case DatabaseSchemeSQLite:
		return DatabaseSchemeSQLite, strings.TrimPrefix(databaseURL, "sqlite://"), nil
	default:
		return "", "", fmt.Errorf("unsupported DATABASE_URL scheme: %s", u.Scheme)
	}
}

func Load() Config {
	cfg := Config{
		Source:    getenv("EVENT_SOURCE", SourceInProcess),
		RPCURL:    getenv("RPC_URL", "http://localhost:26657"),
		WSPath:    getenv("WS_PATH", "/websocket"),

		RelayerAddr:   getenv("RELAYER_ADDR", "relayer-local"),
		PollInterval:  getenvDuration("POLL_INTERVAL", 2*time.Second),
		SweepInterval: getenvDuration("SWEEP_INTERVAL", 15*time.Second),
		AdminAddr:     os.Getenv("ADMIN_ADDR"),

		AIMode:      getenv("AI_MODE", AIModeLocal),
		GenAIAPIKey: os.Getenv("GENAI_API_KEY"),
		GenAIModel:  getenv("GENAI_MODEL", "gemini-2.0-flash"),
		StorageMode: getenv("STORAGE_MODE", StorageModeLocal),
		IPFSURL:     getenv("IPFS_URL", "http://localhost:5001"),
		StorageDir:  getenv("STORAGE_DIR", "./data/answers"),

		MinStakeUnits:  getenvUint("MIN_STAKE", 1),
		MinFeeUnits:    getenvUint("MIN_FEE", 1),
		MaxQuestionLen: getenvInt("MAX_QUESTION_LEN", 2048),
		LockPeriod:     getenvDuration("STAKE_LOCK_PERIOD", 7*24*time.Hour),
		VotingWindow:   getenvDuration("VOTING_WINDOW", 24*time.Hour),
		QuorumPct:      getenvUint("QUORUM_PCT", 33),
		ApprovalPct:    getenvUint("APPROVAL_PCT", 66),
		SlashPct:       getenvUint("SLASH_PCT", 20),
		RewardPct:      getenvUint("REWARD_PCT", 5),

		Debug: getenvBool("DEBUG", false),
	}

	if dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL")); dbURL != "" {
		if dialect, dsn, err := parseDatabaseURL(dbURL); err == nil {
			cfg.DBDialect = dialect
			cfg.DBDsn = dsn
		} else {
			fmt.Fprintf(os.Stderr, "warning: invalid DATABASE_URL, disabling persistence: %v\n", err)
		}
	}

	return cfg
}

func (c Config) String() string {
	return fmt.Sprintf("source=%s db=%s ai=%s storage=%s", c.Source, c.DBDialect, c.AIMode, c.StorageMode)
}

// DebugString returns a human-friendly configuration string with masked secrets.
func (c Config) DebugString() string {
	return fmt.Sprintf(
		"source=%s rpc=%s ws_path=%s db=%s dsn=%s ai=%s storage=%s admin=%s poll=%s sweep=%s",
		c.Source,
		c.RPCURL,
		c.WSPath,
		c.DBDialect,
		maskDSN(c.DBDialect, c.DBDsn),
		c.AIMode,
		c.StorageMode,
		c.AdminAddr,
		c.PollInterval,
		c.SweepInterval,
	)
}

func maskDSN(dialect, dsn string) string {
	switch strings.ToLower(dialect) {
	case DatabaseSchemePostgres:
		if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
			if u.User != nil {
				username := u.User.Username()
				u.User = url.User(username)
			}
			return u.String()
		}
		// Fallback for DSN as key-value list
		parts := strings.Fields(dsn)
		for i, p := range parts {
			lower := strings.ToLower(p)
			if strings.HasPrefix(lower, "password=") {
				parts[i] = "password=***"
			}
		}
		return strings.Join(parts, " ")
	default:
		return dsn
	}
}
