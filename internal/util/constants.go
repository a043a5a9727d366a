package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// 排行榜时间范围
const (
	TimeframeAll     = "all"
	TimeframeWeekly  = "weekly"
	TimeframeMonthly = "monthly"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
