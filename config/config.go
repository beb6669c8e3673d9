package config

import "time"

type (
	// Chain contains the parameters of the transaction-storage state
	// machine.
	Chain struct {
		// RetentionPeriod is the number of blocks a stored transaction's
		// data is guaranteed to remain indexed.
		RetentionPeriod uint64 `yaml:"retentionPeriod"`
		// AuthorizationPeriod is the number of blocks an authorization
		// remains valid after its last refresh.
		AuthorizationPeriod uint64 `yaml:"authorizationPeriod"`
		// MaxTransactionSize is the maximum size of a single stored blob.
		MaxTransactionSize uint64 `yaml:"maxTransactionSize"`
		// MaxBlockTransactions is the maximum number of store/renew calls
		// admitted per block.
		MaxBlockTransactions int `yaml:"maxBlockTransactions"`
		// BlockInterval is the wall-clock spacing of blocks produced by
		// the node.
		BlockInterval time.Duration `yaml:"blockInterval"`
	}

	// Hop contains the configuration of the hand-off pool.
	Hop struct {
		ListenAddress string `yaml:"listenAddress"`
		// MaxPoolSize is the total byte capacity of the pool.
		MaxPoolSize uint64 `yaml:"maxPoolSize"`
		// RetentionBlocks is the number of blocks an entry survives before
		// the sweep removes it.
		RetentionBlocks uint64 `yaml:"retentionBlocks"`
		// SweepInterval is how often expired entries are swept.
		SweepInterval time.Duration `yaml:"sweepInterval"`
	}

	// API contains the listen address of the API server. The API carries
	// the authorizer endpoints and is protected by the password.
	API struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
	}

	// Log contains the log settings
	Log struct {
		Level string `yaml:"level"`
	}

	// Config contains the configuration for bulletind
	Config struct {
		Chain Chain `yaml:"chain"`
		Hop   Hop   `yaml:"hop"`
		API   API   `yaml:"api"`
		Log   Log   `yaml:"log"`
	}
)
