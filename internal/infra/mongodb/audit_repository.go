package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// AuditLog representa o documento que será salvo no Mongo.
// Usamos tags 'bson' em vez de 'json'.
type AuditLog struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Event       string        `bson:"event"`
	InvoiceID   string        `bson:"invoice_id,omitempty"`
	Reference   string        `bson:"reference,omitempty"`
	Amount      int64         `bson:"amount"`
	Status      string        `bson:"status"`
	Error       string        `bson:"error,omitempty"`
	ActorID     string        `bson:"actor_id,omitempty"`
	IPAddress   string        `bson:"ip_address,omitempty"`
	OccurredAt  time.Time     `bson:"occurred_at"`
	ProcessedAt time.Time     `bson:"processed_at"`
}

// AuditRepository implementa gateway.AuditRepository na collection "settlement_audit".
type AuditRepository struct {
	collection *mongo.Collection
}

func NewAuditRepository(client *mongo.Client, dbName string) *AuditRepository {
	collection := client.Database(dbName).Collection("settlement_audit")
	return &AuditRepository{collection: collection}
}

// EnsureIndexes cria os índices usados pela reconciliação (por fatura e por evento).
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "invoice_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
		{Keys: bson.D{{Key: "event", Value: 1}}, Options: options.Index().SetName("event_idx")},
	})
	if err != nil {
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}

func (r *AuditRepository) Save(ctx context.Context, entry gateway.SettlementAudit) error {
	doc := AuditLog{
		Event:       entry.Event,
		InvoiceID:   entry.InvoiceID,
		Reference:   entry.Reference,
		Amount:      entry.Amount,
		Status:      entry.Status,
		Error:       entry.Error,
		ActorID:     entry.ActorID,
		IPAddress:   entry.IPAddress,
		OccurredAt:  entry.OccurredAt,
		ProcessedAt: time.Now().UTC(),
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// ListByInvoice devolve a trilha de auditoria de uma fatura, mais recente primeiro.
func (r *AuditRepository) ListByInvoice(ctx context.Context, invoiceID string, limit int64) ([]gateway.SettlementAudit, error) {
	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.D{{Key: "invoice_id", Value: invoiceID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []AuditLog
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode audit log: %w", err)
	}

	out := make([]gateway.SettlementAudit, 0, len(docs))
	for _, d := range docs {
		out = append(out, gateway.SettlementAudit{
			Event:      d.Event,
			InvoiceID:  d.InvoiceID,
			Reference:  d.Reference,
			Amount:     d.Amount,
			Status:     d.Status,
			Error:      d.Error,
			ActorID:    d.ActorID,
			IPAddress:  d.IPAddress,
			OccurredAt: d.OccurredAt,
		})
	}
	return out, nil
}
