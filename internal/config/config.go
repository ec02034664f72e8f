package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Upload   UploadConfig   `mapstructure:"upload"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// UploadPolicyConfig is one named file policy. Component editors draw from
// these; activities carry their own explicit policy per assignment.
type UploadPolicyConfig struct {
	MaxFiles          int      `mapstructure:"max_files"`
	MaxFileSizeMB     int64    `mapstructure:"max_file_size_mb"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// UploadConfig groups the per-context file policies.
type UploadConfig struct {
	Image    UploadPolicyConfig `mapstructure:"image"`
	Video    UploadPolicyConfig `mapstructure:"video"`
	Audio    UploadPolicyConfig `mapstructure:"audio"`
	Document UploadPolicyConfig `mapstructure:"document"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Environment variables override file values,
	// e.g. server.address -> SERVER_ADDRESS
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "course_app")
	viper.SetDefault("s3.use_ssl", true)
	viper.SetDefault("jwt.expiration", "1h")

	// Per-kind upload policy defaults. Video is deliberately roomier.
	viper.SetDefault("upload.image.max_files", 1)
	viper.SetDefault("upload.image.max_file_size_mb", 10)
	viper.SetDefault("upload.image.allowed_extensions", []string{"jpg", "jpeg", "png", "gif", "webp"})
	viper.SetDefault("upload.video.max_files", 1)
	viper.SetDefault("upload.video.max_file_size_mb", 500)
	viper.SetDefault("upload.video.allowed_extensions", []string{"mp4", "webm", "mov"})
	viper.SetDefault("upload.audio.max_files", 1)
	viper.SetDefault("upload.audio.max_file_size_mb", 50)
	viper.SetDefault("upload.audio.allowed_extensions", []string{"mp3", "wav", "ogg", "m4a"})
	viper.SetDefault("upload.document.max_files", 1)
	viper.SetDefault("upload.document.max_file_size_mb", 25)
	viper.SetDefault("upload.document.allowed_extensions", []string{"pdf", "doc", "docx", "ppt", "pptx", "txt"})

	err = viper.ReadInConfig()
	// A missing config file is fine; defaults and env vars carry it.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
