package config

import (
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mintbay/marketledger/internal/entity"
	"github.com/mintbay/marketledger/internal/log"
	"go.uber.org/zap"
)

type Config struct {
	Env     string
	Network string
	Index   string
	Debug   bool
	LogPath string

	LedgerAddress entity.Address
	TokenAddress  entity.Address
	FeeRecipient  entity.Address
	ListingFee    string

	ApiPort    string
	HealthPort string

	JournalPath string

	MetadataRetries int
	MetadataTimeout int

	IndexActions  bool
	ElasticSearch ElasticSearchConfig
}

type ElasticSearchConfig struct {
	Hosts            []string
	Sniff            bool
	HealthCheck      bool
	Debug            bool
	Username         string
	Password         string
	BulkPersistCount int
}

func Init(app string) {
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().With(zap.Error(err)).Warn("Unable to load .env")
	}

	initLogger(app)
}

func initLogger(app string) {
	cfg := Get()
	log.NewLogger(cfg.LogPath+"/"+app+".log", cfg.Debug)
}

func Get() *Config {
	return &Config{
		Env:             getString("ENV", ""),
		Network:         getString("NETWORK", "local"),
		Index:           getString("INDEX_NAME", "marketledger"),
		Debug:           getBool("DEBUG", false),
		LogPath:         getString("LOG_PATH", "./var/logs"),
		LedgerAddress:   entity.NewAddress(getString("LEDGER_ADDRESS", "0x000000000000000000000000000000006d61726b")),
		TokenAddress:    entity.NewAddress(getString("TOKEN_ADDRESS", "0x00000000000000000000000000000000746f6b65")),
		FeeRecipient:    entity.NewAddress(getString("FEE_RECIPIENT", "")),
		ListingFee:      getString("LISTING_FEE", "25000000000000000"),
		ApiPort:         getString("API_PORT", "8080"),
		HealthPort:      getString("HEALTH_PORT", "8081"),
		JournalPath:     getString("JOURNAL_PATH", "./var/journal.db"),
		MetadataRetries: getInt("METADATA_RETRIES", 3),
		MetadataTimeout: getInt("METADATA_TIMEOUT", 10),
		IndexActions:    getBool("INDEX_ACTIONS", false),
		ElasticSearch: ElasticSearchConfig{
			Hosts:            getSlice("ELASTIC_SEARCH_HOSTS", make([]string, 0), ","),
			Sniff:            getBool("ELASTIC_SEARCH_SNIFF", false),
			HealthCheck:      getBool("ELASTIC_SEARCH_HEALTH_CHECK", true),
			Debug:            getBool("ELASTIC_SEARCH_DEBUG", false),
			Username:         getString("ELASTIC_SEARCH_USERNAME", ""),
			Password:         getString("ELASTIC_SEARCH_PASSWORD", ""),
			BulkPersistCount: getInt("ELASTIC_SEARCH_BULK_PERSIST_COUNT", 300),
		},
	}
}

// ListingFeeAmount parses the configured listing fee. A malformed value is
// fatal, a fee of zero is allowed.
func (c *Config) ListingFeeAmount() *big.Int {
	fee, ok := new(big.Int).SetString(c.ListingFee, 10)
	if !ok {
		zap.S().Fatalf("Invalid listing fee: %s", c.ListingFee)
	}

	return fee
}

func getString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func getInt(key string, defaultValue int) int {
	valStr := getString(key, "")
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultValue
	}

	return val
}

func getBool(key string, defaultValue bool) bool {
	valStr := getString(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultValue
}

func getSlice(key string, defaultVal []string, sep string) []string {
	valStr := getString(key, "")
	if valStr == "" {
		return defaultVal
	}

	return strings.Split(valStr, sep)
}
