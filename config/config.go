package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Configuration chứa thông tin tĩnh cần thiết để chạy ứng dụng
// Nó chứa thông tin cơ sở dữ liệu, SMTP và các endpoint IRCC
type Configuration struct {
	InitMode              bool   `env:"INITMODE" envDefault:"false"`               // Chế độ khởi tạo
	Address               string `env:"ADDRESS" envDefault:":8080"`                // Địa chỉ server
	JwtSecret             string `env:"JWT_SECRET,required"`                       // Bí mật JWT (cũng dùng để dẫn xuất khóa mã hóa mật khẩu)
	MongoDB_ConnectionURI string `env:"MONGODB_CONNECTION_URI,required"`           // URL kết nối cơ sở dữ liệu
	MongoDB_DBName        string `env:"MONGODB_DBNAME,required"`                   // Tên cơ sở dữ liệu tracker
	CORS_Origins          string `env:"CORS_ORIGINS" envDefault:"*"`               // Các origins được phép (phân cách bởi dấu phẩy, * = tất cả)
	CORS_AllowCredentials bool   `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"` // Cho phép gửi credentials
	RateLimit_Max         int    `env:"RATE_LIMIT_MAX" envDefault:"100"`           // Số request tối đa trong window (0 = disable rate limit)
	RateLimit_Window      int    `env:"RATE_LIMIT_WINDOW" envDefault:"60"`         // Thời gian window (giây)
	RateLimit_Enabled     bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`      // Bật/tắt rate limiting
	// Cấu hình pipeline kiểm tra trạng thái hồ sơ
	PollIntervalMinutes int `env:"POLL_INTERVAL_MINUTES" envDefault:"10"` // Chu kỳ quét định kỳ (phút)
	TokenTTLSeconds     int `env:"TOKEN_TTL_SECONDS" envDefault:"3000"`   // TTL của token cache (giây), phải nhỏ hơn hạn token phía IRCC (~1h)
	RemoteTimeoutSec    int `env:"REMOTE_TIMEOUT_SECONDS" envDefault:"30"` // Timeout gọi API IRCC (giây)
	// Endpoint và client id của 2 hệ thống tracker IRCC
	CitizenBaseURL    string `env:"CITIZEN_BASE_URL" envDefault:"https://api.tracker-suivi.apps.cic.gc.ca/user"`         // Base URL tracker quốc tịch
	CitizenClientID   string `env:"CITIZEN_CLIENT_ID" envDefault:"mtnf1qn9p739g2v8aij2anpju"`                            // Cognito client id (citizen)
	ImmigrantBaseURL  string `env:"IMMIGRANT_BASE_URL" envDefault:"https://api.ircc-tracker-suivi.apps.cic.gc.ca/user"`  // Base URL tracker di trú
	ImmigrantClientID string `env:"IMMIGRANT_CLIENT_ID" envDefault:"3cfutv5ffd1i622g1tn6vton5r"`                         // Cognito client id (immigrant)
	// Cấu hình SMTP cho thông báo email
	SMTPHost     string `env:"SMTP_HOST"`                    // SMTP host
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`   // SMTP port
	SMTPUsername string `env:"SMTP_USERNAME"`                // SMTP username
	SMTPPassword string `env:"SMTP_PASSWORD"`                // SMTP password
	SMTPFrom     string `env:"SMTP_FROM"`                    // Địa chỉ người gửi
	// TLS/HTTPS Configuration
	EnableTLS   bool   `env:"ENABLE_TLS" envDefault:"false"` // Bật HTTPS
	TLSCertFile string `env:"TLS_CERT_FILE"`                 // Đường dẫn đến file certificate (.crt hoặc .pem)
	TLSKeyFile  string `env:"TLS_KEY_FILE"`                  // Đường dẫn đến file private key (.key)
}

// getEnvPath trả về đường dẫn đến file env dựa trên môi trường
func getEnvPath() string {
	// Mặc định sử dụng môi trường development
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Tìm thư mục config
	currentDir, err := os.Getwd()
	if err != nil {
		// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
		fmt.Printf("Không thể lấy được thư mục hiện tại: %v\n", err)
		return ""
	}

	// Tìm thư mục config/env
	for {
		envDir := filepath.Join(currentDir, "config", "env")
		if _, err := os.Stat(envDir); err == nil {
			// Tìm thấy thư mục config/env
			envPath := filepath.Join(envDir, fmt.Sprintf("%s.env", env))
			return envPath
		}

		// Đi lên thư mục cha
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return ""
		}
		currentDir = parentDir
	}
}

// NewConfig sẽ đọc dữ liệu cấu hình từ file env được cung cấp
func NewConfig(files ...string) *Configuration {
	envPath := getEnvPath()
	if envPath == "" {
		// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
		fmt.Printf("Không tìm thấy thư mục config/env\n")
		return nil
	}

	err := godotenv.Load(envPath)
	if err != nil {
		// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
		fmt.Printf("Không thể load file env tại %s: %v\n", envPath, err)
		return nil
	}

	cfg := Configuration{}
	err = env.Parse(&cfg)
	if err != nil {
		fmt.Printf("Lỗi khi parse config: %+v\n", err)
		return nil
	}

	return &cfg
}
