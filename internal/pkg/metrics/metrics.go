package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// UserRegisteredTotal 注册成功的用户总数。
	UserRegisteredTotal prometheus.Counter
	// TokenIssuedTotal 成功签发的令牌总数。
	TokenIssuedTotal prometheus.Counter
	// TokenThrottledTotal 被限流拒绝的令牌请求总数。
	TokenThrottledTotal prometheus.Counter
	// RecipeCreatedTotal 创建成功的菜谱总数。
	RecipeCreatedTotal prometheus.Counter
	// ImageUploadedTotal 上传成功的菜谱图片总数。
	ImageUploadedTotal prometheus.Counter
	// ImageUploadRejectedTotal 因非图片内容被拒绝的上传总数。
	ImageUploadRejectedTotal prometheus.Counter

	initOnce sync.Once
)

// InitMetrics 初始化并注册 Prometheus 指标。
//
// 可以安全地多次调用（仅首次生效），方便测试中重复初始化。
func InitMetrics() {
	initOnce.Do(func() {
		UserRegisteredTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipebox_user_registered_total",
			Help: "Total number of successfully registered users.",
		})
		TokenIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipebox_token_issued_total",
			Help: "Total number of bearer tokens issued.",
		})
		TokenThrottledTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipebox_token_throttled_total",
			Help: "Total number of token requests rejected by the rate limiter.",
		})
		RecipeCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipebox_recipe_created_total",
			Help: "Total number of recipes created.",
		})
		ImageUploadedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipebox_image_uploaded_total",
			Help: "Total number of recipe images stored.",
		})
		ImageUploadRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipebox_image_upload_rejected_total",
			Help: "Total number of image uploads rejected as non-image payloads.",
		})

		prometheus.MustRegister(
			UserRegisteredTotal,
			TokenIssuedTotal,
			TokenThrottledTotal,
			RecipeCreatedTotal,
			ImageUploadedTotal,
			ImageUploadRejectedTotal,
		)
	})
}
