package config

import (
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config 汇总了所有服务共享的配置。
// 配置来源：yaml 文件为基础，环境变量覆盖关键项。
type Config struct {
	App struct {
		Env          string `yaml:"env"`
		FeatureFlags struct {
			// 是否启用按距离计费（关闭时仅收取配送方式底价）
			EnableDistanceFee bool `yaml:"enable_distance_fee"`
			// 是否启用在线客服
			EnableLiveChat bool `yaml:"enable_live_chat"`
		} `yaml:"feature_flags"`
	} `yaml:"app"`

	Infra struct {
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Kafka struct {
			Brokers []string `yaml:"brokers"`
		} `yaml:"kafka"`
		Redis struct {
			Addrs string `yaml:"addrs"`
		} `yaml:"redis"`
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Nacos struct {
			ServerAddrs string `yaml:"server_addrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
		Zookeeper struct {
			Servers []string `yaml:"servers"`
		} `yaml:"zookeeper"`
	} `yaml:"infra"`

	// 各服务的基础 URL，供 HTTP 适配器使用
	Services struct {
		Promotion string `yaml:"promotion"`
		Delivery  string `yaml:"delivery"`
		Order     string `yaml:"order"`
		Payment   string `yaml:"payment"`
		Checkout  string `yaml:"checkout"`
		Chat      string `yaml:"chat"`
	} `yaml:"services"`

	// 银行网关（跳转支付）配置
	Gateway struct {
		PayURL     string `yaml:"pay_url"`
		TmnCode    string `yaml:"tmn_code"`
		HashSecret string `yaml:"hash_secret"`
		ReturnURL  string `yaml:"return_url"`
	} `yaml:"gateway"`

	// 外部路线距离服务（openrouteservice）
	Routing struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"routing"`

	// 省份/行政区划参考数据服务
	Geo struct {
		ProvincesURL string `yaml:"provinces_url"`
	} `yaml:"geo"`
}

var (
	current *Config
	once    sync.Once
)

// Load 从文件加载配置并应用环境变量覆盖。路径为空时使用默认值。
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Init 初始化全局配置，只执行一次。
func Init() error {
	var err error
	once.Do(func() {
		current, err = Load(getEnv("CONFIG_FILE", ""))
	})
	return err
}

// GetCurrentConfig 返回全局配置。必须先调用 Init。
func GetCurrentConfig() *Config {
	if current == nil {
		cfg := defaults()
		applyEnvOverrides(cfg)
		current = cfg
	}
	return current
}

func defaults() *Config {
	cfg := &Config{}
	cfg.App.Env = "dev"
	cfg.App.FeatureFlags.EnableDistanceFee = true
	cfg.App.FeatureFlags.EnableLiveChat = true
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Redis.Addrs = "localhost:6379"
	cfg.Infra.Mysql.DSN = "root:root@tcp(localhost:3306)/agrimart?charset=utf8mb4&parseTime=True&loc=Local"
	cfg.Infra.Nacos.ServerAddrs = "localhost:8848"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	cfg.Infra.Zookeeper.Servers = []string{"localhost:2181"}
	cfg.Services.Promotion = "http://localhost:8082"
	cfg.Services.Delivery = "http://localhost:8083"
	cfg.Services.Order = "http://localhost:8084"
	cfg.Services.Payment = "http://localhost:8085"
	cfg.Services.Checkout = "http://localhost:8081"
	cfg.Services.Chat = "http://localhost:8086"
	cfg.Gateway.PayURL = "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"
	cfg.Gateway.ReturnURL = "http://localhost:8080/payment/return"
	cfg.Routing.BaseURL = "https://api.openrouteservice.org"
	cfg.Geo.ProvincesURL = "https://provinces.open-api.vn/api"
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		cfg.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	cfg.Infra.Redis.Addrs = getEnv("REDIS_ADDRS", cfg.Infra.Redis.Addrs)
	cfg.Infra.Mysql.DSN = getEnv("MYSQL_DSN", cfg.Infra.Mysql.DSN)
	cfg.Infra.Nacos.ServerAddrs = getEnv("NACOS_SERVER_ADDRS", cfg.Infra.Nacos.ServerAddrs)
	cfg.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", cfg.Infra.Nacos.Namespace)
	cfg.Infra.Nacos.Group = getEnv("NACOS_GROUP", cfg.Infra.Nacos.Group)
	if v, ok := os.LookupEnv("ZK_SERVERS"); ok {
		cfg.Infra.Zookeeper.Servers = strings.Split(v, ",")
	}
	cfg.Services.Promotion = getEnv("PROMOTION_SERVICE_URL", cfg.Services.Promotion)
	cfg.Services.Delivery = getEnv("DELIVERY_SERVICE_URL", cfg.Services.Delivery)
	cfg.Services.Order = getEnv("ORDER_SERVICE_URL", cfg.Services.Order)
	cfg.Services.Payment = getEnv("PAYMENT_SERVICE_URL", cfg.Services.Payment)
	cfg.Services.Checkout = getEnv("CHECKOUT_SERVICE_URL", cfg.Services.Checkout)
	cfg.Services.Chat = getEnv("CHAT_SERVICE_URL", cfg.Services.Chat)
	cfg.Gateway.TmnCode = getEnv("GATEWAY_TMN_CODE", cfg.Gateway.TmnCode)
	cfg.Gateway.HashSecret = getEnv("GATEWAY_HASH_SECRET", cfg.Gateway.HashSecret)
	cfg.Gateway.ReturnURL = getEnv("GATEWAY_RETURN_URL", cfg.Gateway.ReturnURL)
	cfg.Routing.APIKey = getEnv("ORS_API_KEY", cfg.Routing.APIKey)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
