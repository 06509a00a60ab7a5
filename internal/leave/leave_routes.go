package leave

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"go-leave/internal/middleware"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService middleware.RBACService,
	logger *zap.Logger,
	rdb ...*redis.Client,
) {
	var redisClient *redis.Client
	if len(rdb) > 0 {
		redisClient = rdb[0]
	}

	leaves := r.Group("/leaves")
	leaves.Use(middleware.AuthMiddleware())
	leaves.Use(middleware.ExtractUserID())
	leaves.Use(middleware.ContextLogger(logger))
	{
		leaves.GET("",
			middleware.RateLimitByUser(3, 10),
			middleware.RBACAuthorize(rbacService, "leave", "read"),
			handler.GetMine,
		)

		leaves.GET("/:id",
			middleware.RateLimitByUser(3, 10),
			middleware.RBACAuthorize(rbacService, "leave", "read"),
			handler.GetById,
		)

		if redisClient != nil {
			leaves.POST("",
				middleware.RateLimitByUser(0.5, 2),
				middleware.Idempotency(redisClient),
				middleware.RBACAuthorize(rbacService, "leave", "create"),
				handler.Submit,
			)
		} else {
			leaves.POST("",
				middleware.RateLimitByUser(0.5, 2),
				middleware.RBACAuthorize(rbacService, "leave", "create"),
				handler.Submit,
			)
		}

		leaves.POST("/:id/cancel",
			middleware.RateLimitByUser(0.5, 2),
			middleware.RBACAuthorize(rbacService, "leave", "cancel"),
			handler.Cancel,
		)

		leaves.POST("/:id/manager-decision",
			middleware.RateLimitByUser(1, 5),
			middleware.RBACAuthorize(rbacService, "leave", "approve"),
			handler.ManagerDecide,
		)

		leaves.POST("/:id/reviewer-decision",
			middleware.RateLimitByUser(1, 5),
			middleware.RBACAuthorize(rbacService, "leave", "finalize"),
			handler.ReviewerDecide,
		)
	}

	teams := r.Group("/teams")
	teams.Use(middleware.AuthMiddleware())
	teams.Use(middleware.ExtractUserID())
	teams.Use(middleware.ContextLogger(logger))
	{
		teams.GET("/pending",
			middleware.RateLimitByUser(3, 10),
			middleware.RBACAuthorize(rbacService, "leave", "approve"),
			handler.TeamQueue,
		)
	}

	reviews := r.Group("/reviews")
	reviews.Use(middleware.AuthMiddleware())
	reviews.Use(middleware.ExtractUserID())
	reviews.Use(middleware.ContextLogger(logger))
	{
		reviews.GET("/pending",
			middleware.RateLimitByUser(3, 10),
			middleware.RBACAuthorize(rbacService, "leave", "finalize"),
			handler.ReviewQueue,
		)
	}

	balances := r.Group("/balances")
	balances.Use(middleware.AuthMiddleware())
	balances.Use(middleware.ExtractUserID())
	balances.Use(middleware.ContextLogger(logger))
	{
		balances.GET("",
			middleware.RateLimitByUser(3, 10),
			middleware.RBACAuthorize(rbacService, "balance", "read"),
			handler.GetBalance,
		)
	}
}
