package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	SyncAdminKey        string
	NativeTokenUSDPrice float64
	Network             Network
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = viper.GetString("NODE_ENV")
	}
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	network, err := resolveNetwork(
		viper.GetString("NETWORK_TYPE"),
		viper.GetString("RPC_URL"),
		viper.GetString("MANAGER_CONTRACT_ADDRESS"),
		viper.GetString("SHARE_CONTRACT_ADDRESS"),
		viper.GetString("MANAGER_ABI_VERSION"),
	)
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:                 env,
		Port:                port,
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		SyncAdminKey:        viper.GetString("SYNC_ADMIN_KEY"),
		NativeTokenUSDPrice: viper.GetFloat64("NATIVE_TOKEN_USD_PRICE"),
		Network:             network,
	}, nil
}

// resolveNetwork starts from the built-in network table and applies env overrides.
func resolveNetwork(networkType, rpcURL, manager, share, abiVersion string) (Network, error) {
	t := NetworkType(strings.ToLower(strings.TrimSpace(networkType)))
	if t == "" {
		t = Testnet
	}
	n, ok := Networks[t]
	if !ok {
		return Network{}, fmt.Errorf("unknown NETWORK_TYPE %q (want testnet or mainnet)", networkType)
	}
	if s := strings.TrimSpace(rpcURL); s != "" {
		n.RPCURL = s
	}
	if s := strings.TrimSpace(manager); s != "" {
		n.ManagerAddress = s
	}
	if s := strings.TrimSpace(share); s != "" {
		n.ShareAddress = s
	}
	switch v := ManagerABIVersion(strings.ToLower(strings.TrimSpace(abiVersion))); v {
	case "":
	case ManagerABIV1, ManagerABIV2:
		n.ManagerABI = v
	default:
		return Network{}, fmt.Errorf("unknown MANAGER_ABI_VERSION %q (want v1 or v2)", abiVersion)
	}
	return n, nil
}
