package middleware

import (
	"github.com/gin-gonic/gin"

	"staffhub/backend/internal/service"
)

const requestScopeKey = "request_scope"

// RequestScope 请求级权限缓存中间件
// 每个入站请求各自持有一份缓存，生命周期与请求相同，绝不跨请求共享。
// 同一请求内对同一用户 / 角色 / 担当集合的重复读取只落库一次。
func RequestScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestScopeKey, service.NewRequestContext())
		c.Next()
	}
}

// GetRequestScope 从 gin.Context 取出请求级缓存
func GetRequestScope(c *gin.Context) *service.RequestContext {
	if v, exists := c.Get(requestScopeKey); exists {
		if rc, ok := v.(*service.RequestContext); ok {
			return rc
		}
	}
	// 理论上不可达：路由统一挂载了 RequestScope
	return service.NewRequestContext()
}
