package cache

import "time"

// TTL 档位表。调用方不指定时用 TTLDefault（1 小时）。
const (
	TTLShort    = 5 * time.Minute
	TTLMedium   = 1 * time.Hour
	TTLLong     = 24 * time.Hour
	TTLVeryLong = 7 * 24 * time.Hour

	TTLDefault = TTLMedium

	// 按业务域细分的档位
	TTLImage   = 24 * time.Hour
	TTLWeather = 6 * time.Hour
	TTLProfile = 5 * time.Minute
	TTLPOI     = 7 * 24 * time.Hour
	TTLRoute   = 30 * 24 * time.Hour
)
