package wire

import (
	"Storefront/internal/api"
	"Storefront/internal/api/config"
	"Storefront/internal/api/handler"
	"Storefront/internal/api/middleware"
	"Storefront/internal/job"
	"Storefront/internal/pkg/cron"
	"Storefront/internal/pkg/es"
	"Storefront/internal/pkg/kafka"
	"Storefront/internal/pkg/minio"
	pkgmongo "Storefront/internal/pkg/mongo"
	"Storefront/internal/pkg/realtime"
	"Storefront/internal/pkg/redis"
	"Storefront/internal/pkg/security"
	"Storefront/internal/repository"
	"Storefront/internal/service"
	"errors"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

const (
	ChatStoreSQL   = "sql"
	ChatStoreMongo = "mongo"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
// KafkaManager 与 Bridge 未启用时为 nil
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	CronMgr      *cron.Manager
	KafkaManager *kafka.ConsumerManager
	Bridge       *realtime.RedisBridge
}

// BuildApplication mongoDB 仅在 chat.store=mongo 时需要，esClient 为 nil 时搜索不可用
func BuildApplication(db *gorm.DB, mongoDB *mongo.Database, esClient *elasticsearch.TypedClient, cfg *config.Config) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(db)
	productRepo := repository.NewProductRepo(db)
	reviewRepo := repository.NewReviewRepo(db)

	var chatStore repository.ChatStore
	switch cfg.Chat.Store {
	case "", ChatStoreSQL:
		chatStore = repository.NewChatStore(db)
	case ChatStoreMongo:
		if mongoDB == nil {
			return nil, errors.New("chat.store=mongo requires a mongo connection")
		}
		chatStore = pkgmongo.NewChatStore(mongoDB)
	default:
		return nil, errors.New("unknown chat.store: " + cfg.Chat.Store)
	}

	// 实时推送：单实例直接投递，多实例经 Redis 频道转发
	registry := realtime.NewRegistry()
	var broadcaster realtime.Broadcaster = realtime.NewLocalBroadcaster(registry)
	var bridge *realtime.RedisBridge
	if cfg.Chat.RedisBridge {
		broadcaster = realtime.NewRedisBroadcaster(redis.GetRdbClient())
		bridge = realtime.NewRedisBridge(redis.GetRdbClient(), registry)
	}

	var productSearch es.ProductRepo
	if esClient != nil {
		productSearch = es.NewProductRepo(esClient)
	}

	tokens := security.NewTokenIssuer(cfg.Session.Secret, cfg.Session.Issuer)
	objects := minio.NewStorage()
	inquiryGuard := redis.NewSessionFlagStore(time.Duration(cfg.Chat.SessionFlagTTLHours) * time.Hour)

	userService := service.NewUserService(userRepo, tokens, objects,
		time.Duration(cfg.Session.TTLHours)*time.Hour,
		time.Duration(cfg.Session.RememberTTLHours)*time.Hour)
	// 未启用 CDC 时由写操作直接同步索引
	productService := service.NewProductService(productRepo, userRepo, objects, productSearch, !cfg.Kafka.Enable, cfg.Chat.PlatformAdminEmail)
	reviewService := service.NewReviewService(reviewRepo, userRepo)
	chatService := service.NewChatService(chatStore, userRepo, productRepo, inquiryGuard, broadcaster, cfg.Chat.PlatformAdminEmail)

	auth := middleware.NewAuthenticator(tokens, userService, cfg.Session.CookieName)
	handlers := &api.HandlersGroup{
		Auth:           auth,
		UserHandler:    handler.NewUserHandler(userService, cfg.Session),
		ProductHandler: handler.NewProductHandler(productService),
		ReviewHandler:  handler.NewReviewHandler(reviewService),
		ChatHandler:    handler.NewChatHandler(chatService),
		WsHandler:      handler.NewWsHandler(chatService, auth, registry, cfg.Chat, cfg.Server.AllowOrigins),
	}

	router := api.SetupRouter(handlers, cfg.Server)

	cronMgr := cron.NewCronManager(job.NewProductViewJob(productRepo), cfg.Cron.ProductViewFlush)

	var kafkaMgr *kafka.ConsumerManager
	if cfg.Kafka.Enable {
		if productSearch == nil {
			return nil, errors.New("kafka product consumer requires elasticsearch")
		}
		var err error
		kafkaMgr, err = kafka.NewConsumerManager(cfg, productSearch)
		if err != nil {
			return nil, err
		}
	}

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		CronMgr:      cronMgr,
		KafkaManager: kafkaMgr,
		Bridge:       bridge,
	}, nil
}
