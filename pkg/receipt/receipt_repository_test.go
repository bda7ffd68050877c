package receipt

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ReceiptRadar-Backend/domain"
	"ReceiptRadar-Backend/entities"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&entities.User{},
		&entities.Merchant{},
		&entities.Receipt{},
		&entities.ReceiptItem{},
		&entities.PriceObservation{},
		&entities.ReceiptScan{},
	))
	require.NoError(t, db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_merchants_name_lower ON merchants (LOWER(name));").Error)

	return db
}

func testCanonical(merchantName string) *domain.CanonicalReceipt {
	return &domain.CanonicalReceipt{
		UserID:       uuid.New(),
		ScanID:       uuid.New(),
		MerchantName: merchantName,
		Total:        23.50,
		Date:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Items: []domain.CanonicalItem{
			{Name: "Milk", Price: 4.50, Quantity: 1, Confidence: 0.9},
			{Name: "Bread", Price: 2.25, Quantity: 2, Confidence: 0.8},
		},
		ImageURL: "https://bucket.s3.region.amazonaws.com/receipts/receipt-test.jpg",
	}
}

func TestSaveCanonicalReceiptWritesAllCollections(t *testing.T) {
	db := newTestDB(t)
	repo := NewReceiptRepository(db)
	ctx := context.Background()

	receipt, err := repo.SaveCanonicalReceipt(ctx, testCanonical("Foo Mart"))
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, "Foo Mart", receipt.MerchantName)
	assert.Equal(t, 23.50, receipt.Total)

	var merchantCount, itemCount, observationCount int64
	require.NoError(t, db.Model(&entities.Merchant{}).Count(&merchantCount).Error)
	require.NoError(t, db.Model(&entities.ReceiptItem{}).Where("receipt_id = ?", receipt.ID).Count(&itemCount).Error)
	require.NoError(t, db.Model(&entities.PriceObservation{}).Where("merchant_id = ?", receipt.MerchantID).Count(&observationCount).Error)
	assert.EqualValues(t, 1, merchantCount)
	assert.EqualValues(t, 2, itemCount)
	assert.EqualValues(t, 2, observationCount)

	var observation entities.PriceObservation
	require.NoError(t, db.Where("product_name = ?", "Milk").First(&observation).Error)
	assert.Equal(t, "receipt", observation.Source)
	assert.Equal(t, 4.50, observation.Price)
	assert.Equal(t, receipt.MerchantID, observation.MerchantID)
}

func TestMerchantReusedCaseInsensitively(t *testing.T) {
	db := newTestDB(t)
	repo := NewReceiptRepository(db)
	ctx := context.Background()

	first, err := repo.SaveCanonicalReceipt(ctx, testCanonical("Foo Mart"))
	require.NoError(t, err)

	second, err := repo.SaveCanonicalReceipt(ctx, testCanonical("FOO MART"))
	require.NoError(t, err)

	assert.Equal(t, first.MerchantID, second.MerchantID)
	assert.Equal(t, "Foo Mart", second.MerchantName, "the first-seen spelling wins")

	var merchantCount int64
	require.NoError(t, db.Model(&entities.Merchant{}).Count(&merchantCount).Error)
	assert.EqualValues(t, 1, merchantCount)
}

func TestItemInsertFailureLeavesHeaderCommitted(t *testing.T) {
	db := newTestDB(t)
	repo := NewReceiptRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Migrator().DropTable(&entities.ReceiptItem{}))

	_, err := repo.SaveCanonicalReceipt(ctx, testCanonical("Foo Mart"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert receipt items")

	// The header is not rolled back; callers must not blindly retry.
	var headerCount int64
	require.NoError(t, db.Model(&entities.Receipt{}).Count(&headerCount).Error)
	assert.EqualValues(t, 1, headerCount)
}

func TestPriceHistoryFailureIsDegradedNotFatal(t *testing.T) {
	db := newTestDB(t)
	repo := NewReceiptRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Migrator().DropTable(&entities.PriceObservation{}))

	receipt, err := repo.SaveCanonicalReceipt(ctx, testCanonical("Foo Mart"))
	require.NoError(t, err, "price history is an analytical side-channel, its failure does not fail the save")
	require.NotNil(t, receipt)

	var itemCount int64
	require.NoError(t, db.Model(&entities.ReceiptItem{}).Where("receipt_id = ?", receipt.ID).Count(&itemCount).Error)
	assert.EqualValues(t, 2, itemCount)
}

func TestMerchantResolutionFailureAbortsEverything(t *testing.T) {
	db := newTestDB(t)
	repo := NewReceiptRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Migrator().DropTable(&entities.Merchant{}))

	_, err := repo.SaveCanonicalReceipt(ctx, testCanonical("Foo Mart"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve merchant")

	var headerCount int64
	require.NoError(t, db.Model(&entities.Receipt{}).Count(&headerCount).Error)
	assert.Zero(t, headerCount, "no header is written without a resolved merchant")
}

func TestMerchantCreateConflictReusesWinner(t *testing.T) {
	db := newTestDB(t)
	repo := NewReceiptRepository(db)
	ctx := context.Background()

	// A rival submission lands between the merchant lookup and the create,
	// simulated by inserting it right before the create statement runs.
	rival := &entities.Merchant{ID: uuid.New(), Name: "FOO MART"}
	var rivalErr error
	inserted := false
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("rival_merchant_insert", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*entities.Merchant); !ok || inserted {
			return
		}
		inserted = true
		rivalErr = db.Create(rival).Error
	}))

	receipt, err := repo.SaveCanonicalReceipt(ctx, testCanonical("Foo Mart"))
	require.NoError(t, rivalErr)
	require.NoError(t, err, "losing the merchant create race must not fail the save")
	assert.Equal(t, rival.ID, receipt.MerchantID, "the winner's merchant is reused")
	assert.Equal(t, "FOO MART", receipt.MerchantName)

	var merchantCount int64
	require.NoError(t, db.Model(&entities.Merchant{}).Count(&merchantCount).Error)
	assert.EqualValues(t, 1, merchantCount)
}

func TestScanUpdateDoesNotClobberReceiptID(t *testing.T) {
	db := newTestDB(t)
	repo := NewReceiptRepository(db)
	ctx := context.Background()

	scan := &entities.ReceiptScan{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Status: "Processing",
		Stage:  string(domain.StageSaving),
	}
	require.NoError(t, repo.CreateReceiptScan(ctx, scan))

	// Background save back-fills the receipt id first.
	receiptID := uuid.New()
	require.NoError(t, repo.AttachReceiptToScan(ctx, scan.ID.String(), receiptID))

	// A status update from a scan struct that has never seen the back-fill
	// must not write receipt_id back to NULL.
	scan.Status = "Processed"
	scan.Stage = string(domain.StageComplete)
	require.NoError(t, repo.UpdateReceiptScan(ctx, scan))

	stored, err := repo.GetReceiptScanByID(ctx, scan.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Processed", stored.Status)
	require.NotNil(t, stored.ReceiptID, "receipt id back-fill must survive status updates")
	assert.Equal(t, receiptID, *stored.ReceiptID)
}

func TestAttachReceiptToScan(t *testing.T) {
	db := newTestDB(t)
	repo := NewReceiptRepository(db)
	ctx := context.Background()

	scan := &entities.ReceiptScan{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Status: "Processed",
		Stage:  string(domain.StageComplete),
	}
	require.NoError(t, repo.CreateReceiptScan(ctx, scan))

	receiptID := uuid.New()
	require.NoError(t, repo.AttachReceiptToScan(ctx, scan.ID.String(), receiptID))

	stored, err := repo.GetReceiptScanByID(ctx, scan.ID.String())
	require.NoError(t, err)
	require.NotNil(t, stored.ReceiptID)
	assert.Equal(t, receiptID, *stored.ReceiptID)
}
