package swap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ChainID represents a blockchain chain ID
type ChainID int

const (
	ChainIDBNBMainnet ChainID = 56 // BNB Chain (BSC) mainnet
)

// ContractAddresses holds the settlement contract addresses of a chain
type ContractAddresses struct {
	Multisend string
}

// DefaultContractAddresses maps chain IDs to their contract addresses
var DefaultContractAddresses = map[ChainID]ContractAddresses{
	ChainIDBNBMainnet: {
		Multisend: "0x998739BFdAAdde7C933B942a68053933098f9EDa",
	},
}

// Config is the settlement node configuration
type Config struct {
	Engine EngineSettings `yaml:"engine"`
	Store  StoreConfig    `yaml:"store"`
	Log    LogConfig      `yaml:"log"`
	NATS   NATSSettings   `yaml:"nats"`
	Chain  ChainConfig    `yaml:"chain"`
}

// EngineSettings configures the signing domain
type EngineSettings struct {
	VerifyingContract string `yaml:"verifyingContract"`
}

// StoreConfig selects the state backend. An empty path keeps state in memory.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// NATSSettings configures event publishing. Publishing is off without a URL.
type NATSSettings struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subjectPrefix"`
	Timeout       int    `yaml:"timeout"` // seconds
}

// ChainConfig configures on-chain settlement. Without an RPC URL assets
// move in the in-process ledger.
type ChainConfig struct {
	ChainID        ChainID `yaml:"chainId"`
	RPCURL         string  `yaml:"rpcUrl"`
	PrivateKey     string  `yaml:"privateKey"`
	MultisendAddr  string  `yaml:"multisendAddr"`
	ReceiptTimeout int     `yaml:"receiptTimeout"` // seconds
}

// DefaultConfig returns the configuration used for absent fields
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		NATS: NATSSettings{
			SubjectPrefix: "swap.events",
			Timeout:       10,
		},
		Chain: ChainConfig{
			ChainID:        ChainIDBNBMainnet,
			ReceiptTimeout: 120,
		},
	}
}

// LoadConfig reads a YAML file over the defaults and applies environment overrides.
// An empty path skips the file.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	overrideFromEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// overrideFromEnv applies environment variables on top of the file values
func overrideFromEnv(config *Config) {
	if contract := os.Getenv("SWAP_VERIFYING_CONTRACT"); contract != "" {
		config.Engine.VerifyingContract = contract
	}

	if path := os.Getenv("SWAP_STORE_PATH"); path != "" {
		config.Store.Path = path
	}

	if level := os.Getenv("SWAP_LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
	if format := os.Getenv("SWAP_LOG_FORMAT"); format != "" {
		config.Log.Format = format
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}
	if natsTimeout := os.Getenv("NATS_TIMEOUT"); natsTimeout != "" {
		if t, err := strconv.Atoi(natsTimeout); err == nil {
			config.NATS.Timeout = t
		}
	}

	if rpcURL := os.Getenv("SWAP_RPC_URL"); rpcURL != "" {
		config.Chain.RPCURL = rpcURL
	}
	if privateKey := os.Getenv("SWAP_PRIVATE_KEY"); privateKey != "" {
		config.Chain.PrivateKey = privateKey
	}
	if chainID := os.Getenv("SWAP_CHAIN_ID"); chainID != "" {
		if id, err := strconv.Atoi(chainID); err == nil {
			config.Chain.ChainID = ChainID(id)
		}
	}
}

// Validate checks the fields every deployment needs
func (c *Config) Validate() error {
	if !common.IsHexAddress(c.Engine.VerifyingContract) {
		return &InvalidParamError{Message: fmt.Sprintf("engine.verifyingContract must be a hex address, got: %q", c.Engine.VerifyingContract)}
	}

	if c.Chain.RPCURL == "" {
		return nil
	}
	if c.Chain.PrivateKey == "" {
		return &InvalidParamError{Message: "chain.privateKey is required when chain.rpcUrl is set"}
	}
	if c.Chain.MultisendAddr == "" {
		contracts, ok := DefaultContractAddresses[c.Chain.ChainID]
		if !ok {
			return &InvalidParamError{Message: fmt.Sprintf("chain.multisendAddr is required for chain %d", c.Chain.ChainID)}
		}
		c.Chain.MultisendAddr = contracts.Multisend
	}
	if !common.IsHexAddress(c.Chain.MultisendAddr) {
		return &InvalidParamError{Message: fmt.Sprintf("chain.multisendAddr must be a hex address, got: %q", c.Chain.MultisendAddr)}
	}
	return nil
}

// VerifyingContractAddress returns the parsed signing domain contract
func (c *Config) VerifyingContractAddress() common.Address {
	return common.HexToAddress(c.Engine.VerifyingContract)
}

func (c ChainConfig) receiptTimeout() time.Duration {
	return time.Duration(c.ReceiptTimeout) * time.Second
}

func (c NATSSettings) timeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// NewLogger builds a logrus logger from the log settings
func NewLogger(cfg LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid log level: %q", cfg.Level)}
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid log format: %q", cfg.Format)}
	}
	return logger, nil
}
