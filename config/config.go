// Ininicializing common application configuration
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	CDN    CDNConfig    `mapstructure:"cdn"`
	Loader LoaderConfig `mapstructure:"loader"`
	Assets AssetsConfig `mapstructure:"assets"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Warmer WarmerConfig `mapstructure:"warmer"`
}

type ServerConfig struct {
	AppVersion   string        `mapstructure:"app_version"`
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Idle_timeout time.Duration `mapstructure:"idle_timeout"`
	Env          string        `mapstructure:"env"`
	Mode         string        `mapstructure:"mode"`
	LogLevel     string        `mapstructure:"log_level"`
}

type CDNConfig struct {
	Origin      string          `mapstructure:"origin"`
	Quality     int             `mapstructure:"quality"`
	Breakpoints []int           `mapstructure:"breakpoints"`
	Sizes       SizesConfig     `mapstructure:"sizes"`
	Preloads    []PreloadConfig `mapstructure:"preloads"`
}

type SizesConfig struct {
	Mobile  string `mapstructure:"mobile"`
	Tablet  string `mapstructure:"tablet"`
	Desktop string `mapstructure:"desktop"`
}

// PreloadConfig is a hint sent with every landing page response.
type PreloadConfig struct {
	Src           string `mapstructure:"src"`
	Type          string `mapstructure:"type"`
	FetchPriority string `mapstructure:"fetch_priority"`
	Media         string `mapstructure:"media"`
}

type LoaderConfig struct {
	RootMargin int `mapstructure:"root_margin"`
}

type AssetsConfig struct {
	Dir     string `mapstructure:"dir"`
	Landing string `mapstructure:"landing"`
}

type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	WarmTTL  time.Duration `mapstructure:"warm_ttl"`
}

type WarmerConfig struct {
	Workers       int           `mapstructure:"workers"`
	TasksInFlight int           `mapstructure:"tasks_in_flight"`
	Timeout       time.Duration `mapstructure:"timeout"`
	AutoWarm      bool          `mapstructure:"auto_warm"`
}

func LoadConfig() (*viper.Viper, error) {

	viperInstance := viper.New()

	viperInstance.AddConfigPath("./config")
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")

	setDefaults(viperInstance)

	viperInstance.SetEnvPrefix("IMGPIPE")
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperInstance.AutomaticEnv()

	err := viperInstance.ReadInConfig()

	if err != nil {
		return nil, err
	}
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {

	var c Config

	err := v.Unmarshal(&c)
	if err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("cdn.origin", "https://ik.imagekit.io/")
	v.SetDefault("cdn.quality", 80)
	v.SetDefault("cdn.breakpoints", []int{320, 640, 960, 1280, 1920})
	v.SetDefault("loader.root_margin", 200)
	v.SetDefault("assets.dir", "./public")
	v.SetDefault("kafka.brokers", "localhost:9094")
	v.SetDefault("kafka.topic", "image-warmup")
	v.SetDefault("kafka.group_id", "imgpipe-warmer")
	v.SetDefault("redis.warm_ttl", 24*time.Hour)
	v.SetDefault("warmer.workers", 4)
	v.SetDefault("warmer.tasks_in_flight", 2)
	v.SetDefault("warmer.timeout", 15*time.Second)
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
