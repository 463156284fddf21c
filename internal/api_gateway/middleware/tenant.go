package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TenantIDHeader is the HTTP header carrying the caller's tenant
	TenantIDHeader = "X-Tenant-ID"

	// TenantIDKey is the key used to store the tenant ID in the context
	TenantIDKey = "tenant_id"
)

// TenantID middleware requires a valid tenant identifier on every request.
// The tenancy system upstream authenticates the caller; here the tenant is
// consumed only as an opaque identifier scoping all operations.
func TenantID() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(TenantIDHeader)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "MISSING_TENANT", "message": "X-Tenant-ID header is required"},
			})
			return
		}

		tenantID, err := uuid.Parse(header)
		if err != nil || tenantID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": gin.H{"code": "INVALID_TENANT", "message": "X-Tenant-ID must be a valid UUID"},
			})
			return
		}

		c.Set(TenantIDKey, tenantID)
		c.Next()
	}
}

// GetTenantID retrieves the tenant ID from the gin context if present
func GetTenantID(c *gin.Context) uuid.UUID {
	if id, exists := c.Get(TenantIDKey); exists {
		if tenantID, ok := id.(uuid.UUID); ok {
			return tenantID
		}
	}
	return uuid.Nil
}
