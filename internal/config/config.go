package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AppName    string          `mapstructure:"APP_NAME"`
	AppVersion string          `mapstructure:"APP_VERSION"`
	LogLevel   string          `mapstructure:"LOG_LEVEL"`
	Server     ServerConfig    `mapstructure:"SERVER"`
	WebSocket  WebSocketConfig `mapstructure:"WEBSOCKET"`
	Chat       ChatConfig      `mapstructure:"CHAT"`
	Storage    StorageConfig   `mapstructure:"STORAGE"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Host           string        `mapstructure:"HOST"`
	Port           string        `mapstructure:"PORT"`
	WebSocketPath  string        `mapstructure:"WEBSOCKET_PATH"`
	StaticDir      string        `mapstructure:"STATIC_DIR"`
	ReadTimeout    time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `mapstructure:"WRITE_TIMEOUT"`
	MaxHeaderBytes int           `mapstructure:"MAX_HEADER_BYTES"`
	CORS           CORSConfig    `mapstructure:"CORS"`
}

// CORSConfig holds configuration for CORS.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`
	AllowedMethods []string `mapstructure:"ALLOWED_METHODS"`
	AllowedHeaders []string `mapstructure:"ALLOWED_HEADERS"`
}

// WebSocketConfig holds configuration for WebSocket connections.
type WebSocketConfig struct {
	WriteWaitSeconds    int `mapstructure:"WRITE_WAIT_SECONDS"`
	PongWaitSeconds     int `mapstructure:"PONG_WAIT_SECONDS"`
	PingPeriodSeconds   int `mapstructure:"PING_PERIOD_SECONDS"`
	MaxMessageSizeBytes int `mapstructure:"MAX_MESSAGE_SIZE_BYTES"`
	SendBufferSize      int `mapstructure:"SEND_BUFFER_SIZE"`
}

// IdentityConfig 描述一个固定聊天身份。
type IdentityConfig struct {
	ID     string `mapstructure:"ID"`
	Avatar string `mapstructure:"AVATAR"`
}

// ChatConfig holds the coordinator's tunables: the two fixed identities,
// the recall window and the presence reaper timings.
type ChatConfig struct {
	UserA             IdentityConfig `mapstructure:"USER_A"`
	UserB             IdentityConfig `mapstructure:"USER_B"`
	RecallWindow      time.Duration  `mapstructure:"RECALL_WINDOW"`
	ReaperInterval    time.Duration  `mapstructure:"REAPER_INTERVAL"`
	PresenceStaleness time.Duration  `mapstructure:"PRESENCE_STALENESS"`
}

// StorageConfig holds configuration for media file storage.
type StorageConfig struct {
	LocalPath      string `mapstructure:"LOCAL_PATH"`
	BaseURL        string `mapstructure:"BASE_URL"`
	MaxImageSizeMB int64  `mapstructure:"MAX_IMAGE_SIZE_MB"`
	MaxVideoSizeMB int64  `mapstructure:"MAX_VIDEO_SIZE_MB"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()

	v.SetDefault("APP_NAME", "PairChat")
	v.SetDefault("APP_VERSION", "0.1.0")
	v.SetDefault("LOG_LEVEL", "info")

	// Server Defaults
	v.SetDefault("SERVER.HOST", "0.0.0.0")
	v.SetDefault("SERVER.PORT", "3000")
	v.SetDefault("SERVER.WEBSOCKET_PATH", "/ws")
	v.SetDefault("SERVER.STATIC_DIR", "./public")
	v.SetDefault("SERVER.READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.MAX_HEADER_BYTES", 1<<20) // 1 MB
	v.SetDefault("SERVER.CORS.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.CORS.ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("SERVER.CORS.ALLOWED_HEADERS", []string{"Accept", "Content-Type"})

	// WebSocket Defaults
	v.SetDefault("WEBSOCKET.WRITE_WAIT_SECONDS", 10)
	v.SetDefault("WEBSOCKET.PONG_WAIT_SECONDS", 60)
	v.SetDefault("WEBSOCKET.PING_PERIOD_SECONDS", 54) // (60 * 9) / 10
	v.SetDefault("WEBSOCKET.MAX_MESSAGE_SIZE_BYTES", 4096)
	v.SetDefault("WEBSOCKET.SEND_BUFFER_SIZE", 256)

	// Chat Defaults (两个固定身份)
	v.SetDefault("CHAT.USER_A.ID", "GG")
	v.SetDefault("CHAT.USER_A.AVATAR", "/images/GG.png")
	v.SetDefault("CHAT.USER_B.ID", "MM")
	v.SetDefault("CHAT.USER_B.AVATAR", "/images/MM.png")
	v.SetDefault("CHAT.RECALL_WINDOW", 2*time.Minute)
	v.SetDefault("CHAT.REAPER_INTERVAL", 30*time.Second)
	v.SetDefault("CHAT.PRESENCE_STALENESS", 30*time.Second)

	// Storage Defaults
	v.SetDefault("STORAGE.LOCAL_PATH", "./public/uploads")
	v.SetDefault("STORAGE.BASE_URL", "/uploads")
	v.SetDefault("STORAGE.MAX_IMAGE_SIZE_MB", 10)
	v.SetDefault("STORAGE.MAX_VIDEO_SIZE_MB", 100)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv() // Read in environment variables that match
	// Example: SERVER_PORT will override Server.Port
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return
		}
		// Config file not found; defaults cover everything, so this is fine.
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
