package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	DB      DBConfig      `mapstructure:"db"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Chains  ChainsConfig  `mapstructure:"chains"`
	Quorum  QuorumConfig  `mapstructure:"quorum"`
	Sponsor SponsorConfig `mapstructure:"sponsor"`
	Relay   RelayConfig   `mapstructure:"relay"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis" or "kafka"
}

type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	ReconcileTopic   string   `mapstructure:"reconcile_topic"`
	ReconcileGroupID string   `mapstructure:"reconcile_group_id"`
}

// ChainConfig describes one chain deployment. Addresses are fixed per
// deployment and injected here rather than hardcoded at call sites.
type ChainConfig struct {
	Name             string `mapstructure:"name"`
	RpcURL           string `mapstructure:"rpc_url"`
	ChainID          int64  `mapstructure:"chain_id"`
	Registry         string `mapstructure:"registry"`          // asset registry contract
	AccessController string `mapstructure:"access_controller"` // grant/revoke contract
}

// ChainsConfig holds the primary (authoritative) deployment and the
// secondary mirror deployment.
type ChainsConfig struct {
	Primary   ChainConfig `mapstructure:"primary"`
	Secondary ChainConfig `mapstructure:"secondary"`
}

type QuorumConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	PublicKey  string `mapstructure:"public_key"` // target key the quorum signs with
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// SponsorConfig identifies the gas-paying sender account. The mnemonic is
// only used by the local development signer; in production the key never
// exists outside the quorum.
type SponsorConfig struct {
	Address        string `mapstructure:"address"`
	Mnemonic       string `mapstructure:"mnemonic"`
	DerivationPath string `mapstructure:"derivation_path"`
}

type RelayConfig struct {
	ConfirmTimeoutSec int `mapstructure:"confirm_timeout_sec"`
	PollIntervalMs    int `mapstructure:"poll_interval_ms"`
	MaxSubmitAttempts int `mapstructure:"max_submit_attempts"`
	SenderLockTTLSec  int `mapstructure:"sender_lock_ttl_sec"`
	NonceLedgerTTLSec int `mapstructure:"nonce_ledger_ttl_sec"`
}

var Global Config

func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.http_port", "8080")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "relay_user")
	viper.SetDefault("db.password", "relay_password")
	viper.SetDefault("db.name", "relay_db")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.mq_type", "redis")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.reconcile_topic", "relay.mirror.failures")
	viper.SetDefault("kafka.reconcile_group_id", "relay_reconcile_group")

	viper.SetDefault("chains.primary.name", "primary")
	viper.SetDefault("chains.secondary.name", "secondary")

	viper.SetDefault("quorum.timeout_sec", 30)

	viper.SetDefault("sponsor.derivation_path", "m/44'/60'/0'/0/0")

	viper.SetDefault("relay.confirm_timeout_sec", 45)
	viper.SetDefault("relay.poll_interval_ms", 1250)
	viper.SetDefault("relay.max_submit_attempts", 3)
	viper.SetDefault("relay.sender_lock_ttl_sec", 120)
	viper.SetDefault("relay.nonce_ledger_ttl_sec", 600)
}
