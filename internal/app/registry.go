package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-leave/internal/identity"
	"go-leave/internal/leave"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/rbac"
	"go-leave/internal/shared/locker"
)

func registerModules(
	router *gin.Engine,
	gormDB *gorm.DB,
	rdb *redis.Client,
) error {
	db, err := gormDB.DB()
	if err != nil {
		return err
	}

	// --- Repositories ---
	identityRepo := identity.NewRepository(gormDB)
	leaveRepo := leave.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- RBAC Core ---
	rbacService, err := rbac.NewService()
	if err != nil {
		return err
	}

	// --- Services ---
	identityService := identity.NewService(db, identityRepo)
	locks := locker.NewKeyed(5 * time.Second)
	leaveService := leave.NewService(db, leaveRepo, identityService, locks, rdb, outboxRepo)

	// --- Handlers ---
	identityHandler := identity.NewHandler(identityService)
	leaveHandler := leave.NewHandler(leaveService, rdb)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		identity.RegisterRoutes(api, identityHandler, rbacService, zap.L().Named("identity.http"))
		leave.RegisterRoutes(api, leaveHandler, rbacService, zap.L().Named("leave.http"), rdb)
	}

	return nil
}
