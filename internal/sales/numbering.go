package sales

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
)

// Sale number prefixes by origin.
const (
	PrefixPOS = "VTA"
	PrefixWeb = "WEB"
)

// NextNumber reserves the next sale number for a tenant inside the caller's
// transaction. The per-tenant counter row is upserted atomically, so two
// concurrent sales can never share a sequence value.
func NextNumber(tx *gorm.DB, tenantID uuid.UUID, prefix string, now time.Time) (string, error) {
	var seq int64
	err := tx.Raw(`
		INSERT INTO sale_counters (tenant_id, seq) VALUES (?, 1)
		ON CONFLICT (tenant_id) DO UPDATE SET seq = sale_counters.seq + 1
		RETURNING seq`, tenantID.String()).Scan(&seq).Error
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve sale number")
	}
	return fmt.Sprintf("%s-%s-%06d", prefix, now.Format("20060102"), seq), nil
}
