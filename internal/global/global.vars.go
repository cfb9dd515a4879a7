package global

import (
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/goagain/ircc-tracker/config"
	"github.com/goagain/ircc-tracker/internal/registry"
)

// MongoDB_Tracker_CollectionName chứa tên các collection trong MongoDB
type MongoDB_Tracker_CollectionName struct {
	TrackedCredentials string // Tên collection cho thông tin đăng nhập IRCC được theo dõi
	ApplicationRecords string // Tên collection cho các phiên bản trạng thái hồ sơ
}

// Các biến toàn cục
var Validate *validator.Validate               // Biến để xác thực dữ liệu
var MongoDB_Session *mongo.Client              // Phiên kết nối tới MongoDB
var ServerConfig *config.Configuration         // Cấu hình của server
var MongoDB_ColNames MongoDB_Tracker_CollectionName = *new(MongoDB_Tracker_CollectionName) // Tên các collection

// Các Registry
var RegistryCollections = registry.NewRegistry[*mongo.Collection]() // Registry chứa các collections
var RegistryDatabase = registry.NewRegistry[*mongo.Database]()      // Registry chứa các databases
