package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"garmentflow/internal/apperror"
	"garmentflow/internal/model"
	"garmentflow/internal/repository"
	"garmentflow/internal/testutil"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestCalculateWorkerWagesSplitsBillable(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := NewWageService(repository.NewRepositories(db))

	stitching := testutil.SeedStage(t, db, "Stitching")
	sb := testutil.SeedSubBatch(t, db, "SB-1", 200, stitching)
	entry := testutil.SeedEntry(t, db, sb.ID, stitching.ID, 200)
	worker := testutil.SeedWorker(t, db, "Meera", &stitching.ID)

	testutil.SeedWorkLog(t, db, entry, worker, testutil.Day(2026, 3, 2), 100, 5, true)
	testutil.SeedWorkLog(t, db, entry, worker, testutil.Day(2026, 3, 3), 20, 5, false)

	wages, err := svc.CalculateWorkerWages(ctx, worker.ID.String(), DateRange{})
	require.NoError(t, err)

	s := wages.Summary
	assert.Equal(t, "Meera", s.WorkerName)
	assert.True(t, s.TotalBillableWages.Equal(dec(500)), s.TotalBillableWages.String())
	assert.True(t, s.TotalNonBillableWages.Equal(dec(100)), s.TotalNonBillableWages.String())
	assert.True(t, s.TotalWages.Equal(dec(600)))
	assert.Equal(t, 1, s.BillableEntries)
	assert.Equal(t, 1, s.NonBillableEntries)
	assert.Equal(t, 2, s.TotalEntries)
	assert.Equal(t, 120, s.TotalQuantityWorked)

	require.Len(t, wages.DetailedLogs, 2)
	assert.Equal(t, "2026-03-02", wages.DetailedLogs[0].WorkDate)
	assert.Equal(t, "SB-1", wages.DetailedLogs[0].SubBatchName)
	assert.Equal(t, "Stitching", wages.DetailedLogs[0].StageName)
	assert.True(t, wages.DetailedLogs[0].Amount.Equal(dec(500)))
}

func TestCalculateWorkerWagesDateRangeAndEmptyResult(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := NewWageService(repository.NewRepositories(db))

	stage := testutil.SeedStage(t, db, "Finishing")
	sb := testutil.SeedSubBatch(t, db, "SB-2", 100, stage)
	entry := testutil.SeedEntry(t, db, sb.ID, stage.ID, 100)
	worker := testutil.SeedWorker(t, db, "Karan", &stage.ID)

	testutil.SeedWorkLog(t, db, entry, worker, testutil.Day(2026, 2, 27), 10, 3, true)
	testutil.SeedWorkLog(t, db, entry, worker, testutil.Day(2026, 3, 1), 20, 3, true)
	testutil.SeedWorkLog(t, db, entry, worker, testutil.Day(2026, 3, 5), 30, 3, true)

	r, err := ParseDateRange("2026-03-01", "2026-03-05")
	require.NoError(t, err)
	wages, err := svc.CalculateWorkerWages(ctx, worker.ID.String(), r)
	require.NoError(t, err)
	assert.Equal(t, 2, wages.Summary.TotalEntries)
	assert.True(t, wages.Summary.TotalBillableWages.Equal(dec(150)))

	r, err = ParseDateRange("2026-04-01", "")
	require.NoError(t, err)
	wages, err = svc.CalculateWorkerWages(ctx, worker.ID.String(), r)
	require.NoError(t, err, "no matching logs is a zero summary, not an error")
	assert.Zero(t, wages.Summary.TotalEntries)
	assert.True(t, wages.Summary.TotalWages.IsZero())
	assert.Empty(t, wages.DetailedLogs)

	_, err = svc.CalculateWorkerWages(ctx, uuid.NewString(), DateRange{})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = ParseDateRange("2026-03-05", "2026-03-01")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	_, err = ParseDateRange("05/03/2026", "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestCalculateAllWorkersWagesSortsByBillable(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := NewWageService(repository.NewRepositories(db))

	cutting := testutil.SeedStage(t, db, "Cutting")
	stitching := testutil.SeedStage(t, db, "Stitching")
	sb := testutil.SeedSubBatch(t, db, "SB-3", 500, cutting, stitching)
	cutEntry := testutil.SeedEntry(t, db, sb.ID, cutting.ID, 500)
	stitchEntry := testutil.SeedEntry(t, db, sb.ID, stitching.ID, 500)

	anil := testutil.SeedWorker(t, db, "Anil", &cutting.ID)
	bina := testutil.SeedWorker(t, db, "Bina", &stitching.ID)
	chetan := testutil.SeedWorker(t, db, "Chetan", &stitching.ID)

	day := testutil.Day(2026, 3, 10)
	testutil.SeedWorkLog(t, db, cutEntry, anil, day, 40, 2, true)      // 80
	testutil.SeedWorkLog(t, db, stitchEntry, bina, day, 30, 4, true)   // 120
	testutil.SeedWorkLog(t, db, stitchEntry, chetan, day, 20, 4, true) // 80
	testutil.SeedWorkLog(t, db, stitchEntry, chetan, day, 50, 4, false)

	all, err := svc.CalculateAllWorkersWages(ctx, DateRange{}, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Bina", "Anil", "Chetan"}, []string{all[0].WorkerName, all[1].WorkerName, all[2].WorkerName},
		"ties on billable wages fall back to name")
	assert.True(t, all[2].TotalNonBillableWages.Equal(dec(200)))

	dept, err := svc.CalculateAllWorkersWages(ctx, DateRange{}, stitching.ID.String())
	require.NoError(t, err)
	require.Len(t, dept, 2)
	assert.Equal(t, "Bina", dept[0].WorkerName)

	_, err = svc.CalculateAllWorkersWages(ctx, DateRange{}, uuid.NewString())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestDepartmentWageSummary(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := NewWageService(repository.NewRepositories(db))

	stitching := testutil.SeedStage(t, db, "Stitching")
	empty := testutil.SeedStage(t, db, "Embroidery")
	sb := testutil.SeedSubBatch(t, db, "SB-4", 100, stitching)
	entry := testutil.SeedEntry(t, db, sb.ID, stitching.ID, 100)
	w1 := testutil.SeedWorker(t, db, "Divya", &stitching.ID)
	w2 := testutil.SeedWorker(t, db, "Esha", &stitching.ID)
	testutil.SeedWorkLog(t, db, entry, w1, testutil.Day(2026, 3, 1), 10, 6, true)
	testutil.SeedWorkLog(t, db, entry, w2, testutil.Day(2026, 3, 1), 5, 6, false)

	summary, err := svc.GetDepartmentWageSummary(ctx, stitching.ID.String(), DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "Stitching", summary.DepartmentName)
	assert.Equal(t, 2, summary.WorkerCount)
	assert.True(t, summary.TotalBillableWages.Equal(dec(60)))
	assert.True(t, summary.TotalNonBillableWages.Equal(dec(30)))
	assert.Equal(t, 2, summary.TotalEntries)

	zero, err := svc.GetDepartmentWageSummary(ctx, empty.ID.String(), DateRange{})
	require.NoError(t, err)
	assert.Zero(t, zero.WorkerCount)
	assert.True(t, zero.TotalWages.IsZero())
	assert.Empty(t, zero.Workers)

	_, err = svc.GetDepartmentWageSummary(ctx, uuid.NewString(), DateRange{})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestSubBatchWageSummaryGroupsByWorker(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := NewWageService(repository.NewRepositories(db))

	stage := testutil.SeedStage(t, db, "Stitching")
	sb := testutil.SeedSubBatch(t, db, "SB-5", 100, stage)
	other := testutil.SeedSubBatch(t, db, "SB-6", 100, stage)
	entry := testutil.SeedEntry(t, db, sb.ID, stage.ID, 100)
	otherEntry := testutil.SeedEntry(t, db, other.ID, stage.ID, 100)
	worker := testutil.SeedWorker(t, db, "Farah", &stage.ID)

	testutil.SeedWorkLog(t, db, entry, worker, testutil.Day(2026, 3, 1), 10, 2, true)
	testutil.SeedWorkLog(t, db, entry, worker, testutil.Day(2026, 3, 2), 15, 2, true)
	testutil.SeedWorkLog(t, db, otherEntry, worker, testutil.Day(2026, 3, 2), 99, 2, true)

	casual := model.WorkLog{
		LedgerEntryID: entry.ID, SubBatchID: sb.ID, StageID: stage.ID,
		WorkerName: "Day labourer", WorkDate: testutil.Day(2026, 3, 2),
		QuantityReceived: 5, QuantityWorked: 5, UnitPrice: dec(2), IsBillable: true,
		ActivityType: model.ActivityNormal,
	}
	require.NoError(t, db.Omit("Rejections", "Alterations").Create(&casual).Error)

	summary, err := svc.GetSubBatchWageSummary(ctx, sb.ID.String())
	require.NoError(t, err)
	require.Len(t, summary.Workers, 2)
	assert.Equal(t, "Farah", summary.Workers[0].WorkerName)
	assert.Equal(t, 2, summary.Workers[0].TotalEntries)
	assert.True(t, summary.Workers[0].TotalBillableWages.Equal(dec(50)))
	assert.Equal(t, "Day labourer", summary.Workers[1].WorkerName)
	assert.Empty(t, summary.Workers[1].WorkerID)
	assert.True(t, summary.TotalWages.Equal(dec(60)))

	_, err = svc.GetSubBatchWageSummary(ctx, uuid.NewString())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestExportWorkerWagesWritesWorkbook(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	svc := NewWageService(repository.NewRepositories(db))

	stage := testutil.SeedStage(t, db, "Stitching")
	sb := testutil.SeedSubBatch(t, db, "SB-7", 100, stage)
	entry := testutil.SeedEntry(t, db, sb.ID, stage.ID, 100)
	worker := testutil.SeedWorker(t, db, "Gita", &stage.ID)
	testutil.SeedWorkLog(t, db, entry, worker, testutil.Day(2026, 3, 1), 100, 5, true)
	testutil.SeedWorkLog(t, db, entry, worker, testutil.Day(2026, 3, 1), 20, 5, false)

	data, err := svc.ExportWorkerWages(ctx, DateRange{}, "")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(wageSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, wageHeadings, rows[0])
	assert.Equal(t, []string{"Gita", "1", "500", "1", "100", "600", "120"}, rows[1])
}
