package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/config"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/infra/mongodb"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/infra/postgres"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/infra/rabbitmq"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/usecase"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// O worker consome duas filas: efeitos pós-pagamento (receita e estoque)
// e eventos de liquidação para a trilha de auditoria no Mongo.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Configuração inválida")
	}
	config.SetupLogger(cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("Erro ao criar client MongoDB")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("Erro ao desconectar Mongo")
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal().Err(err).Msg("Erro ao pingar MongoDB")
	}
	auditRepository := mongodb.NewAuditRepository(mongoClient, cfg.MongoDatabase)
	if err := auditRepository.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Falha ao criar índices de auditoria")
	}
	log.Info().Msg("✅ Conectado ao MongoDB!")

	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Não foi possível conectar ao banco de dados")
	}
	defer dbPool.Close()
	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Banco de dados não está respondendo")
	}

	uow := postgres.NewUow(dbPool)
	runner := usecase.NewEffectRunner(
		postgres.NewInvoiceRepository(dbPool),
		postgres.NewRevenueRepository(dbPool),
		postgres.NewStockRepository(dbPool, uow),
		auditRepository,
		cfg.SellerCommissionRate,
	)

	conn, err := amqp.DialConfig(cfg.RabbitURL, amqp.Config{
		Properties: amqp.Table{
			"connection_name": "SettlementWorker_Consumer",
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Erro ao conectar no RabbitMQ")
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Error().Err(err).Msg("Erro ao fechar conexão RabbitMQ")
		}
	}()

	effectsCh := openChannel(conn)
	auditCh := openChannel(conn)
	if err := rabbitmq.DeclareTopology(effectsCh); err != nil {
		log.Fatal().Err(err).Msg("Erro ao declarar topologia")
	}

	runEffects := func(ctx context.Context, effects []domain.Effect) {
		runner.Run(ctx, effects)
	}
	consumers := []*rabbitmq.Consumer{
		rabbitmq.NewConsumer(effectsCh, rabbitmq.EffectsQueue, "effects_worker", rabbitmq.EffectHandler(runEffects)),
		rabbitmq.NewConsumer(auditCh, rabbitmq.AuditQueue, "audit_worker", rabbitmq.AuditHandler(auditRepository, 5*time.Second)),
	}

	// Monitoramento de queda de conexão
	notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))

	errs := make(chan error, len(consumers))
	for _, c := range consumers {
		go func(c *rabbitmq.Consumer) {
			errs <- c.Run(ctx)
		}(c)
	}

	log.Info().Msg(" [*] Worker iniciado. Aguardando mensagens...")

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down worker...")
	case err := <-notifyClose:
		// Força o worker a cair para o orquestrador subir de novo
		log.Fatal().Err(err).Msg("🔴 Conexão RabbitMQ fechada")
	case err := <-errs:
		if err != nil {
			log.Fatal().Err(err).Msg("🔴 Consumidor parou")
		}
	}
}

func openChannel(conn *amqp.Connection) *amqp.Channel {
	ch, err := conn.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("Erro ao abrir canal")
	}
	// Definir QoS (Prefetch Count = 1)
	// Isso garante que o RabbitMQ mande apenas 1 mensagem por vez e espere o Ack.
	if err := ch.Qos(1, 0, false); err != nil {
		log.Fatal().Err(err).Msg("Erro ao configurar QoS")
	}
	return ch
}
