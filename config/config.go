package config

import (
	"database/sql"
	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	MinIOBucket string        `yaml:"minio_bucket"`
	App         App           `yaml:"app"`
	DB          *sql.DB       `yaml:"db"`
	Queue       *RabbitMQ     `yaml:"rabbitmq"`
	Storage     *minio.Client `yaml:"storage"`
	Server      Server        `yaml:"server"`
	Media       Media         `yaml:"media"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

// Media holds the on-disk layout of the delivery pipeline and the base
// address chunk and manifest references resolve against.
type Media struct {
	ChunksDir    string `yaml:"chunks_dir"`
	ThumbnailDir string `yaml:"thumbnail_dir"`
	VideosDir    string `yaml:"videos_dir"`
	BaseURL      string `yaml:"base_url"`
}

type RabbitMQ struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	QueueName    string `json:"queue_name"`
	BindingKey   string `json:"binding_key"`
	Kind         string `json:"kind"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetDefault("media.chunks_dir", "chunks")
	viper.SetDefault("media.thumbnail_dir", "thumbnail")
	viper.SetDefault("media.videos_dir", "videos")
	viper.SetDefault("server.workers", 1)
	viper.SetDefault("rabbitmq_exchange", "transcoding_exchange")
	viper.SetDefault("rabbitmq_queue", "transcoding_queue")
	viper.SetDefault("rabbitmq_binding_key", "transcoding.request")
	viper.SetDefault("rabbitmq_kind", "direct")
	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		MinIOBucket: viper.GetString("minio.bucket"),
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
			Workers:  viper.GetInt("server.workers"),
		},
		Media: Media{
			ChunksDir:    viper.GetString("media.chunks_dir"),
			ThumbnailDir: viper.GetString("media.thumbnail_dir"),
			VideosDir:    viper.GetString("media.videos_dir"),
			BaseURL:      viper.GetString("media.base_url"),
		},
	}

	if host := viper.GetString("postgresql_host"); host != "" {
		db, err := sql.Open("postgres", host)
		if err != nil {
			return nil, err
		}
		cfg.DB = db
	}

	if viper.GetString("rabbitmq_host") != "" {
		cfg.Queue = &RabbitMQ{
			Host:         viper.GetString("rabbitmq_host"),
			Port:         viper.GetInt("rabbitmq_port"),
			User:         viper.GetString("rabbitmq_user"),
			Pass:         viper.GetString("rabbitmq_pass"),
			ExchangeName: viper.GetString("rabbitmq_exchange"),
			QueueName:    viper.GetString("rabbitmq_queue"),
			BindingKey:   viper.GetString("rabbitmq_binding_key"),
			Kind:         viper.GetString("rabbitmq_kind"),
		}
	}

	if url := viper.GetString("minio.url"); url != "" {
		minioClient, err := minio.New(url, &minio.Options{
			Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
			Secure: false,
		})
		if err != nil {
			return nil, err
		}
		cfg.Storage = minioClient
	}

	return cfg, nil
}
