package domain

import "time"

// AuditMetadata identifica quem fez a mutação. É passado explicitamente para
// toda operação de escrita em vez de ser lido de um contexto global.
type AuditMetadata struct {
	ActorID   string
	Timestamp time.Time
	IPAddress string
}

// At devolve o timestamp da auditoria ou o relógio atual se vazio.
func (a AuditMetadata) At() time.Time {
	if a.Timestamp.IsZero() {
		return time.Now().UTC()
	}
	return a.Timestamp.UTC()
}
