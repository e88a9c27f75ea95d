package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Airdrop   AirdropConfig   `mapstructure:"airdrop"`
	Swap      SwapConfig      `mapstructure:"swap"`
	Level     LevelConfig     `mapstructure:"level"`
	Promotion PromotionConfig `mapstructure:"promotion"`
	Storm     StormConfig     `mapstructure:"storm"`
	WorldID   WorldIDConfig   `mapstructure:"worldid"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DatabaseConfig driver 为 memory 时不连接数据库，账本保存在进程内存中
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	DSN             string `mapstructure:"dsn"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type ChainConfig struct {
	RPCEndpoints    []string `mapstructure:"rpc_endpoints"`
	ContractAddress string   `mapstructure:"contract_address"`
	ChainID         uint64   `mapstructure:"chain_id"`
	PrivateKey      string   `mapstructure:"private_key"`
	GasLimit        uint64   `mapstructure:"gas_limit"`

	// TokenAddress 为空时不监听链上领取事件
	TokenAddress  string `mapstructure:"token_address"`
	WatchInterval int    `mapstructure:"watch_interval"`
	Confirmations uint64 `mapstructure:"confirmations"`
	BatchSize     uint64 `mapstructure:"batch_size"`
}

type AirdropConfig struct {
	ClaimInterval time.Duration `mapstructure:"claim_interval"`
	DailyAmount   string        `mapstructure:"daily_amount"`
	AmountLabel   string        `mapstructure:"amount_label"`
}

// SwapConfig rates 为 tokenIn -> tokenOut -> rate，为空时使用内置汇率表
type SwapConfig struct {
	Rates map[string]map[string]string `mapstructure:"rates"`
}

type LevelTierConfig struct {
	Level      int     `mapstructure:"level"`
	MinXP      int64   `mapstructure:"min_xp"`
	Multiplier float64 `mapstructure:"multiplier"`
}

type LevelConfig struct {
	Tiers []LevelTierConfig `mapstructure:"tiers"`
}

type PromotionConfig struct {
	TTL            time.Duration `mapstructure:"ttl"`
	TitleMax       int           `mapstructure:"title_max"`
	DescriptionMax int           `mapstructure:"description_max"`
}

type StormConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	Capacity int           `mapstructure:"capacity"`
	MaxText  int           `mapstructure:"max_text"`
}

type WorldIDConfig struct {
	AppID     string  `mapstructure:"app_id"`
	APIKey    string  `mapstructure:"api_key"`
	BaseURL   string  `mapstructure:"base_url"`
	Action    string  `mapstructure:"action"`
	RateLimit float64 `mapstructure:"rate_limit"`
	Timeout   int     `mapstructure:"timeout"`
}

type AuthConfig struct {
	CookieName    string        `mapstructure:"cookie_name"`
	SessionSecret string        `mapstructure:"session_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
}

type SchedulerConfig struct {
	SweepCron string `mapstructure:"sweep_cron"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// envBindings 将前端沿用的环境变量名映射到配置键
var envBindings = map[string]string{
	"chain.contract_address": "NEXT_PUBLIC_CONTRACT_ADDRESS",
	"chain.private_key":      "PRIVATE_KEY",
	"chain.token_address":    "TPF_TOKEN_ADDRESS",
	"worldid.app_id":         "APP_ID",
	"worldid.api_key":        "DEV_PORTAL_API_KEY",
	"auth.session_secret":    "SESSION_SECRET",
	"database.dsn":           "DATABASE_DSN",
	"database.driver":        "DATABASE_DRIVER",
	"redis.addr":             "REDIS_ADDR",
	"server.port":            "PORT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)

	v.SetDefault("redis.prefix", "tpf")

	v.SetDefault("chain.rpc_endpoints", []string{
		"https://worldchain-mainnet.g.alchemy.com/public",
		"https://480.rpc.thirdweb.com",
		"https://worldchain-mainnet.gateway.tenderly.co",
	})
	v.SetDefault("chain.chain_id", 480)
	v.SetDefault("chain.gas_limit", 200000)
	v.SetDefault("chain.watch_interval", 15)
	v.SetDefault("chain.confirmations", 3)
	v.SetDefault("chain.batch_size", 500)

	v.SetDefault("airdrop.claim_interval", 24*time.Hour)
	v.SetDefault("airdrop.daily_amount", "50")
	v.SetDefault("airdrop.amount_label", "50 TPF")

	v.SetDefault("promotion.ttl", time.Hour)
	v.SetDefault("promotion.title_max", 100)
	v.SetDefault("promotion.description_max", 200)

	v.SetDefault("storm.ttl", 60*time.Second)
	v.SetDefault("storm.capacity", 100)
	v.SetDefault("storm.max_text", 20)

	v.SetDefault("worldid.base_url", "https://developer.worldcoin.org")
	v.SetDefault("worldid.action", "claim-airdrop")
	v.SetDefault("worldid.rate_limit", 5)
	v.SetDefault("worldid.timeout", 10)

	v.SetDefault("auth.cookie_name", "session")
	v.SetDefault("auth.session_ttl", 7*24*time.Hour)

	v.SetDefault("scheduler.sweep_cron", "0 * * * * *")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
}

// Load 读取YAML配置文件并叠加环境变量
// 配置文件不存在时只使用默认值与环境变量
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Chain.RPCEndpoints = withPrimaryEndpoint(os.Getenv("NEXT_PUBLIC_RPC_URL"), config.Chain.RPCEndpoints)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// withPrimaryEndpoint 把环境变量指定的RPC放在首位并去重
func withPrimaryEndpoint(primary string, endpoints []string) []string {
	primary = strings.TrimSpace(primary)
	out := make([]string, 0, len(endpoints)+1)
	seen := make(map[string]bool)
	if primary != "" {
		out = append(out, primary)
		seen[primary] = true
	}
	for _, e := range endpoints {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Database.Driver != "memory" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for driver %s", c.Database.Driver)
	}
	if len(c.Chain.RPCEndpoints) == 0 {
		return fmt.Errorf("at least one rpc endpoint is required")
	}
	if c.Airdrop.ClaimInterval <= 0 {
		return fmt.Errorf("airdrop.claim_interval must be positive")
	}
	if c.Storm.Capacity <= 0 {
		return fmt.Errorf("storm.capacity must be positive")
	}
	return nil
}

// WatchEnabled 是否同步链上领取记录
func (c *ChainConfig) WatchEnabled() bool {
	return strings.TrimSpace(c.TokenAddress) != "" && strings.TrimSpace(c.ContractAddress) != "" && c.WatchInterval > 0
}

// HasSigner 是否配置了可提交交易的私钥
func (c *ChainConfig) HasSigner() bool {
	return strings.TrimSpace(c.PrivateKey) != ""
}
