package cache

import "fmt"

// 键语义（命名空间必须与既有数据保持一致，不能改）：
// - ImageKey(id):            图片元数据缓存（String JSON）
// - WeatherKey(loc):         地点天气缓存（String JSON）
// - ProfileKey(userID):      用户资料缓存（String JSON）
// - RateKey(action, ident):  限流窗口计数器（String int，带 TTL）
// - POIKey(id):              兴趣点缓存（String JSON）
// - SessionKey(id):          会话缓存（String JSON）
// - LocationKey(query):      地理编码结果缓存（String JSON）
// - TripKey(id):             行程详情缓存（String JSON）
// - TripCommentsKey(id):     行程评论列表缓存（String JSON）
// - RouteKey(from, to):      路线规划结果缓存（String JSON）
// - ScenicKey(id):           风景点缓存（String JSON）
//
// 所有 builder 都是输入的纯函数；不同 builder 之间不会产生同一个键
// （命名空间前缀互不为前缀关系，injectivity 由测试保证）。

const (
	keyImageFmt        = "image:%s"
	keyWeatherFmt      = "weather:%s"
	keyProfileFmt      = "profile:%s"
	keyRateFmt         = "rate:%s:%s"
	keyPOIFmt          = "poi:%s"
	keySessionFmt      = "session:%s"
	keyLocationFmt     = "location:%s"
	keyTripFmt         = "trip:%s"
	keyTripCommentsFmt = "comments:trip:%s"
	keyRouteFmt        = "route:%s:%s"
	keyScenicFmt       = "scenic:%s"
)

func ImageKey(imageID string) string    { return fmt.Sprintf(keyImageFmt, imageID) }
func WeatherKey(location string) string { return fmt.Sprintf(keyWeatherFmt, location) }
func ProfileKey(userID string) string   { return fmt.Sprintf(keyProfileFmt, userID) }
func RateKey(action, identifier string) string {
	return fmt.Sprintf(keyRateFmt, action, identifier)
}
func POIKey(poiID string) string          { return fmt.Sprintf(keyPOIFmt, poiID) }
func SessionKey(sessionID string) string  { return fmt.Sprintf(keySessionFmt, sessionID) }
func LocationKey(query string) string     { return fmt.Sprintf(keyLocationFmt, query) }
func TripKey(tripID string) string        { return fmt.Sprintf(keyTripFmt, tripID) }
func TripCommentsKey(tripID string) string { return fmt.Sprintf(keyTripCommentsFmt, tripID) }
func RouteKey(from, to string) string     { return fmt.Sprintf(keyRouteFmt, from, to) }
func ScenicKey(scenicID string) string    { return fmt.Sprintf(keyScenicFmt, scenicID) }
