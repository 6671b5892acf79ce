package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/db"
	"storefront/internal/infra/media"
	"storefront/internal/infra/paygate"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/logging"
	"storefront/internal/middleware"
	"storefront/internal/server"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"
	"storefront/internal/validator"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const bcryptCost = 12

func main() {
	//.env は無くてもよい
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Fatal("load .env")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("sandbox stopped")
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	//DB接続
	gormDB, err := db.Connect(cfg.DSN())
	if err != nil {
		return errors.Wrap(err, "connect db")
	}
	if err := db.Migrate(gormDB); err != nil {
		return errors.Wrap(err, "migrate")
	}
	seeded, err := db.Seed(ctx, gormDB)
	if err != nil {
		return errors.Wrap(err, "seed")
	}
	if seeded > 0 {
		log.WithField("products", seeded).Info("catalog seeded")
	}

	//匿名カート
	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB, log)
	if err != nil {
		return errors.Wrap(err, "connect redis")
	}
	defer rdb.Close()

	//Repository（GORM / Redis 実装）生成
	clientRepo := infraRepo.NewClientGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	favoriteRepo := infraRepo.NewFavoriteGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	paymentRepo := infraRepo.NewPaymentGormRepository(gormDB)
	anonRepo := infraRepo.NewAnonCartRedis(rdb)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	storage := media.NewLocal(cfg.MediaRoot)

	gateway := newGateway(cfg, log)

	//usecaseに渡す部品
	clock := auth.SystemClock{}
	issuer := auth.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTTL)
	hasher := auth.NewBcryptPasswordHasher(bcryptCost)

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, usecase.AuthDeps{
		Clients:   clientRepo,
		Tokens:    rtRepo,
		Validator: validator.NewAuthValidator(clientRepo),
		Hasher:    hasher,
		Verifier:  hasher,
		Issuer:    issuer,
		Clock:     clock,
		Media:     storage,
		Log:       log,
	})
	productUC := usecase.NewProductUsecase(cfg, productRepo, favoriteRepo, log)
	favoriteUC := usecase.NewFavoriteUsecase(cfg, productRepo, favoriteRepo)
	cartUC := usecase.NewCartUsecase(cfg, cartRepo, anonRepo, productRepo, txm, log)
	paymentUC := usecase.NewPaymentUsecase(cfg, cartRepo, paymentRepo, txm, gateway, clock, log)

	//Handler生成
	handlers := server.Handlers{
		Clients:   handler.NewClientHandler(authUC),
		Products:  handler.NewProductHandler(productUC),
		Favorites: handler.NewFavoriteHandler(favoriteUC),
		Carts:     handler.NewCartHandler(cartUC),
		Payments:  handler.NewPaymentHandler(paymentUC),
	}
	guards := handler.Guards{
		Auth:    middleware.AuthJWT(issuer),
		OptAuth: middleware.OptionalAuthJWT(issuer),
		Version: middleware.TokenVersionGuard(clientRepo),
	}

	//Server起動
	return server.New(cfg, handlers, guards, log).Run(ctx)
}

// 端末キーが無ければローカル決済（PAY_SUCCESS_URL に即リダイレクト）
func newGateway(cfg config.Config, log logrus.FieldLogger) paygate.Gateway {
	if cfg.TBankTerminalKey == "" {
		log.Warn("TBANK_TERMINAL_KEY is empty, using local payment gateway")
		return paygate.NewLocal(cfg.PaySuccessURL)
	}
	tbank := paygate.NewTBank(paygate.TBankConfig{
		BaseURL:     cfg.TBankBaseURL,
		TerminalKey: cfg.TBankTerminalKey,
		Password:    cfg.TBankPassword,
		SuccessURL:  cfg.PaySuccessURL,
		FailURL:     cfg.PayFailURL,
	})
	return paygate.NewBreaker(tbank, log)
}
