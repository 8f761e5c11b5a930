package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Server   ServerConfig
	Sources  SourcesConfig
	Logger   LoggerConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// SourcesConfig locates the two spreadsheets. Paths are fixed per deployment.
type SourcesConfig struct {
	SalesFile     string
	SalesSheet    string
	ProductsFile  string
	ProductsSheet string
	ColumnsFile   string
	LoadTimeout   time.Duration
	Columns       Columns
}

// Columns names the header cells the loader looks up in each sheet.
type Columns struct {
	Sales    SalesColumns    `toml:"sales"`
	Products ProductsColumns `toml:"products"`
}

type SalesColumns struct {
	ProductID  string `toml:"product_id"`
	CustomerID string `toml:"customer_id"`
	SaleDate   string `toml:"sale_date"`
	SaleValue  string `toml:"sale_value"`
	Quantity   string `toml:"quantity"`
}

type ProductsColumns struct {
	ProductID string `toml:"product_id"`
	UnitCost  string `toml:"unit_cost"`
	Brand     string `toml:"brand"`
	Category  string `toml:"category"`
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

// DefaultColumns returns the header names used by the Vendas/Produtos workbooks.
func DefaultColumns() Columns {
	return Columns{
		Sales: SalesColumns{
			ProductID:  "ID Produto",
			CustomerID: "ID Cliente",
			SaleDate:   "Data Venda",
			SaleValue:  "Valor Venda",
			Quantity:   "Quantidade",
		},
		Products: ProductsColumns{
			ProductID: "ID Produto",
			UnitCost:  "Custo Unitário",
			Brand:     "Marca",
			Category:  "Categoria",
		},
	}
}

// Load reads a .env file if one exists, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8501),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Sources: SourcesConfig{
			SalesFile:     getEnvString("SALES_FILE", "Vendas.xlsx"),
			SalesSheet:    getEnvString("SALES_SHEET", ""),
			ProductsFile:  getEnvString("PRODUCTS_FILE", "Produtos.xlsx"),
			ProductsSheet: getEnvString("PRODUCTS_SHEET", ""),
			ColumnsFile:   getEnvString("COLUMNS_FILE", ""),
			LoadTimeout:   getEnvDuration("LOAD_TIMEOUT", 30*time.Second),
			Columns:       DefaultColumns(),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8501"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if cfg.Sources.ColumnsFile != "" {
		cols, err := LoadColumns(cfg.Sources.ColumnsFile)
		if err != nil {
			return nil, err
		}
		cfg.Sources.Columns = cols
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadColumns decodes a TOML column mapping. Keys left out keep their defaults.
func LoadColumns(path string) (Columns, error) {
	cols := DefaultColumns()

	data, err := os.ReadFile(path)
	if err != nil {
		return cols, fmt.Errorf("read columns file: %w", err)
	}
	if err := toml.Unmarshal(data, &cols); err != nil {
		return cols, fmt.Errorf("decode columns file %s: %w", path, err)
	}
	return cols, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Sources.SalesFile == "" || c.Sources.ProductsFile == "" {
		return fmt.Errorf("sales and products file paths cannot be empty")
	}

	if c.Sources.LoadTimeout <= 0 {
		return fmt.Errorf("load timeout must be positive")
	}

	if err := c.Sources.Columns.validate(); err != nil {
		return err
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

func (c Columns) validate() error {
	named := map[string]string{
		"sales.product_id":    c.Sales.ProductID,
		"sales.customer_id":   c.Sales.CustomerID,
		"sales.sale_date":     c.Sales.SaleDate,
		"sales.sale_value":    c.Sales.SaleValue,
		"sales.quantity":      c.Sales.Quantity,
		"products.product_id": c.Products.ProductID,
		"products.unit_cost":  c.Products.UnitCost,
		"products.brand":      c.Products.Brand,
		"products.category":   c.Products.Category,
	}
	for key, value := range named {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("column %s cannot be empty", key)
		}
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
