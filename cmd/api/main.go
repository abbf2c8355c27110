package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/config"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/infra/bank"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/infra/http/handler"
	internalMiddleware "github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/infra/http/middleware"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/infra/mongodb"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/infra/postgres"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/infra/rabbitmq"
	redisInfra "github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/infra/redis"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/reference"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/usecase"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Configuração inválida")
	}
	config.SetupLogger(cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Não foi possível conectar ao banco de dados")
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Banco de dados não está respondendo")
	}
	if err := postgres.Migrate(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Falha ao aplicar schema")
	}
	log.Info().Msg("✅ Conectado ao PostgreSQL com sucesso!")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("Não foi possível conectar ao Redis (Idempotência em fail-open)")
	} else {
		log.Info().Msg("✅ Conectado ao Redis!")
	}

	var eventPublisher gateway.EventPublisher
	rabbitConn, err := amqp.DialConfig(cfg.RabbitURL, amqp.Config{
		Properties: amqp.Table{
			"connection_name": "SettlementAPI_Publisher",
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Falha ao conectar no RabbitMQ (Eventos não serão enviados)")
	} else {
		defer rabbitConn.Close()
		ch, err := rabbitConn.Channel()
		if err != nil {
			log.Fatal().Err(err).Msg("Falha ao abrir canal RabbitMQ")
		}
		defer ch.Close()

		if err := rabbitmq.DeclareTopology(ch); err != nil {
			log.Fatal().Err(err).Msg("Falha ao declarar topologia")
		}
		eventPublisher = rabbitmq.NewRabbitMQPublisher(ch)
		log.Info().Msg("✅ Conectado ao RabbitMQ!")
	}

	var auditRepository gateway.AuditRepository
	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Warn().Err(err).Msg("Falha ao criar client MongoDB (auditoria desabilitada)")
	} else {
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				log.Error().Err(err).Msg("Erro ao desconectar Mongo")
			}
		}()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := mongoClient.Ping(pingCtx, nil); err != nil {
			log.Warn().Err(err).Msg("MongoDB não respondeu (auditoria desabilitada)")
		} else {
			auditRepository = mongodb.NewAuditRepository(mongoClient, cfg.MongoDatabase)
		}
		cancel()
	}

	// Inicialização da Camada de Infraestrutura (Repositories)
	idempotencyRepo := redisInfra.NewIdempotencyRepository(redisClient)
	invoiceRepository := postgres.NewInvoiceRepository(dbPool)
	walletRepository := postgres.NewWalletRepository(dbPool)
	withdrawalRepository := postgres.NewWithdrawalRepository(dbPool)
	revenueRepository := postgres.NewRevenueRepository(dbPool)
	//  Unit of Work (Gerenciador de Transações)
	uow := postgres.NewUow(dbPool)
	stockRepository := postgres.NewStockRepository(dbPool, uow)
	verifier := bank.NewVerifier(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayRPS, 0)
	generator := reference.NewGenerator()

	// Efeitos pós-pagamento: fila para o worker ou goroutine local
	var dispatcher gateway.EffectDispatcher
	var inline *usecase.InlineDispatcher
	if cfg.EffectsMode == config.EffectsQueue && eventPublisher != nil {
		dispatcher = rabbitmq.NewEffectPublisher(eventPublisher, cfg.RevenueAccrualDelay)
	} else {
		if cfg.EffectsMode == config.EffectsQueue {
			log.Warn().Msg("RabbitMQ indisponível, executando efeitos no próprio processo")
		}
		runner := usecase.NewEffectRunner(invoiceRepository, revenueRepository, stockRepository, auditRepository, cfg.SellerCommissionRate)
		inline = usecase.NewInlineDispatcher(runner, cfg.RevenueAccrualDelay, 30*time.Second)
		dispatcher = inline
	}

	// Inicialização da Camada de UseCase (Regras de Negócio)
	ledger := usecase.NewWalletLedger(walletRepository, uow)
	confirmPayment := usecase.NewConfirmPayment(invoiceRepository, uow, verifier, ledger, dispatcher, eventPublisher, cfg.GatewayVerifyTimeout)
	createInvoice := usecase.NewCreateInvoice(invoiceRepository, uow, generator)
	getInvoice := usecase.NewGetInvoice(invoiceRepository, auditRepository)
	startPayment := usecase.NewStartPayment(invoiceRepository, uow, generator)
	payWithWallet := usecase.NewPayWithWallet(invoiceRepository, uow, ledger, generator, dispatcher, eventPublisher)
	cancelInvoice := usecase.NewCancelInvoice(invoiceRepository, uow, eventPublisher)
	createWallet := usecase.NewCreateWallet(walletRepository)
	getWallet := usecase.NewGetWallet(walletRepository)
	withdrawals := usecase.NewWithdrawal(withdrawalRepository, walletRepository, revenueRepository, uow, ledger, eventPublisher)

	router := handler.NewRouter(handler.Handlers{
		Invoices:    handler.NewInvoiceHandler(createInvoice, getInvoice, startPayment, payWithWallet, cancelInvoice),
		Payments:    handler.NewPaymentHandler(confirmPayment),
		Wallets:     handler.NewWalletHandler(createWallet, getWallet, ledger, generator),
		Withdrawals: handler.NewWithdrawalHandler(withdrawals),
	}, internalMiddleware.Idempotency(idempotencyRepo, cfg.IdempotencyTTL))

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Msgf("🚀 Servidor rodando na porta %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Falha ao iniciar servidor HTTP")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Desligando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Falha no shutdown do servidor HTTP")
	}
	// Espera os efeitos em andamento antes de fechar o pool
	if inline != nil {
		inline.Wait()
	}
}
