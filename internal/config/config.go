package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Gateway struct {
	BaseURL   string        `yaml:"GATEWAY_BASE_URL" env:"GATEWAY_BASE_URL" env-required:"true"`
	Timeout   time.Duration `yaml:"GATEWAY_TIMEOUT" env:"GATEWAY_TIMEOUT" env-default:"10s"`
	AuthToken string        `yaml:"GATEWAY_AUTH_TOKEN" env:"GATEWAY_AUTH_TOKEN" env-default:""`
}

type Checkout struct {
	// Providers narrows the closed provider set offered at the payment step.
	Providers []string `yaml:"PAYMENT_PROVIDERS" env:"PAYMENT_PROVIDERS" env-default:"cod,card,paypal,momo"`
}

type Ops struct {
	Addr string `yaml:"address" env:"OPS_ADDR" env-default:":9090"`
}

type Config struct {
	Env      string   `yaml:"env" env:"ENV" env-required:"true"`
	Gateway  Gateway  `yaml:"gateway"`
	Checkout Checkout `yaml:"checkout"`
	Ops      Ops      `yaml:"ops"`
}

func MustLoad() *Config {

	var configPath string

	configPath = os.Getenv("CONFIG_PATH")

	if configPath == "" {

		flags := flag.String("config", "", "gets the config flag value")

		flag.Parse()

		configPath = *flags

		if configPath == "" {

			log.Fatal("Config path is not set")

		}

	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config

	err := cleanenv.ReadConfig(configPath, &cfg)

	if err != nil {

		log.Fatalf("can not read config file: %s", err.Error())
	}

	return &cfg

}
