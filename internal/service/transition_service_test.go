package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"garmentflow/internal/apperror"
	"garmentflow/internal/logger"
	"garmentflow/internal/metrics"
	"garmentflow/internal/model"
	"garmentflow/internal/repository"
	"garmentflow/internal/testutil"
)

type recordedEvent struct {
	name string
	data map[string]interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(event string, data map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{name: event, data: data})
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.name)
	}
	return out
}

type failingHistory struct {
	repository.HistoryRepository
}

func (failingHistory) Append(ctx context.Context, event *model.HistoryEvent) error {
	return errors.New("disk full")
}

type lineFixture struct {
	db        *gorm.DB
	repos     repository.Repositories
	svc       TransitionService
	publisher *recordingPublisher
	recorder  *metrics.Recorder
	cutting   model.Department
	stitching model.Department
	finishing model.Department
	packing   model.Department
	subBatch  model.SubBatch
	entry     model.LedgerEntry
}

// newLineFixture puts 200 pieces of one sub-batch at stitching
func newLineFixture(t *testing.T) *lineFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	f := &lineFixture{db: db, repos: repository.NewRepositories(db), publisher: &recordingPublisher{}}
	f.recorder = metrics.NewRecorder(prometheus.NewRegistry())

	f.cutting = testutil.SeedStage(t, db, "Cutting")
	f.stitching = testutil.SeedStage(t, db, "Stitching")
	f.finishing = testutil.SeedStage(t, db, "Finishing")
	f.packing = testutil.SeedStage(t, db, "Packing")
	f.subBatch = testutil.SeedSubBatch(t, db, "SB-100", 200, f.cutting, f.stitching, f.finishing, f.packing)
	f.entry = testutil.SeedEntry(t, db, f.subBatch.ID, f.stitching.ID, 200)
	f.rebuild()
	return f
}

func (f *lineFixture) rebuild() {
	f.svc = NewTransitionService(f.repos, f.publisher, f.recorder, logger.Discard())
}

func (f *lineFixture) reload(t *testing.T, id uuid.UUID) *model.LedgerEntry {
	t.Helper()
	entry, err := f.repos.Ledger.FindByID(context.Background(), id)
	require.NoError(t, err)
	return entry
}

func (f *lineFixture) rejection(qty int, reason string, to model.Department) CreateRejectionRequest {
	return CreateRejectionRequest{
		SubBatchID:  f.subBatch.ID.String(),
		FromStageID: f.stitching.ID.String(),
		ToStageID:   to.ID.String(),
		Quantity:    qty,
		Reason:      reason,
	}
}

func TestCreateRejectionSplitsSourceEntry(t *testing.T) {
	f := newLineFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateRejection(ctx, "supervisor-1", f.rejection(50, "stain", f.cutting))
	require.NoError(t, err)

	source := f.reload(t, f.entry.ID)
	assert.Equal(t, 150, source.QuantityRemaining)
	assert.Equal(t, 200, source.TotalQuantity)
	assert.True(t, source.IsCurrent, "the source keeps its flag")

	created := f.reload(t, res.Entry.ID)
	assert.Equal(t, 50, created.TotalQuantity)
	assert.Equal(t, 50, created.QuantityRemaining)
	assert.Equal(t, model.LineageRejected, created.LineageTag)
	assert.True(t, created.IsCurrent)
	assert.Equal(t, f.cutting.ID, created.StageID)
	require.NotNil(t, created.SentFromStageID)
	assert.Equal(t, f.stitching.ID, *created.SentFromStageID)
	require.NotNil(t, created.RejectReason)
	assert.Equal(t, "stain", *created.RejectReason)
	assert.Nil(t, created.AlterReason)

	history, err := f.repos.History.ListBySubBatch(ctx, f.subBatch.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, created.ID, history[0].LedgerEntryID)
	assert.Nil(t, history[0].FromStageID)
	assert.Equal(t, model.EventRejection, history[0].EventType)
	require.NotNil(t, history[0].SourceLedgerEntryID)
	assert.Equal(t, f.entry.ID, *history[0].SourceLedgerEntryID)
	require.NotNil(t, history[0].Reason)
	assert.Equal(t, "stain", *history[0].Reason)

	records, err := f.repos.SplitRecords.ListRejections(ctx, f.subBatch.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, f.entry.ID, records[0].SourceLedgerEntryID)
	assert.Equal(t, created.ID, records[0].CreatedLedgerEntryID)
	assert.Equal(t, 50, records[0].Quantity)
	assert.Equal(t, res.Record.ID, records[0].ID)

	assert.Equal(t, 150, res.Source.QuantityRemaining)
	assert.False(t, res.CreatedAt.IsZero())
	assert.Equal(t, []string{EventTrancheSplit}, f.publisher.names())
	assert.Equal(t, 1.0, promtest.ToFloat64(f.recorder.TransitionsTotal.WithLabelValues(OpCreateRejection, "REJECTED")))
	assert.Equal(t, 50.0, promtest.ToFloat64(f.recorder.PiecesMovedTotal.WithLabelValues(OpCreateRejection, "REJECTED")))

	logs, total, err := f.repos.Audit.List(ctx, 0, 10, model.ActionCreateRejection)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "supervisor-1", logs[0].ActorID)
}

func TestCreateRejectionInsufficientQuantityLeavesLedgerUnchanged(t *testing.T) {
	f := newLineFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRejection(ctx, "", f.rejection(201, "stain", f.cutting))
	require.Error(t, err)

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.KindInsufficientQuantity, appErr.Kind)
	assert.Equal(t, 201, appErr.Requested)
	assert.Equal(t, 200, appErr.Available)
	assert.Contains(t, err.Error(), "201")
	assert.Contains(t, err.Error(), "200")

	assert.Equal(t, 200, f.reload(t, f.entry.ID).QuantityRemaining)
	entries, err := f.repos.Ledger.ListBySubBatch(ctx, f.subBatch.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	history, err := f.repos.History.ListBySubBatch(ctx, f.subBatch.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	records, err := f.repos.SplitRecords.ListRejections(ctx, f.subBatch.ID)
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.Empty(t, f.publisher.names())
	assert.Equal(t, 1.0, promtest.ToFloat64(f.recorder.RejectedCalls.WithLabelValues(OpCreateRejection, "INSUFFICIENT_QUANTITY")))
}

func TestSplitRejectsClosedOrMissingSource(t *testing.T) {
	f := newLineFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRejection(ctx, "", CreateRejectionRequest{
		SubBatchID:    f.subBatch.ID.String(),
		FromStageID:   f.stitching.ID.String(),
		ToStageID:     f.cutting.ID.String(),
		Quantity:      5,
		Reason:        "hole",
		LedgerEntryID: uuid.NewString(),
	})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	require.NoError(t, f.repos.Ledger.SetCurrent(ctx, f.entry.ID, false))

	req := f.rejection(5, "hole", f.cutting)
	req.LedgerEntryID = f.entry.ID.String()
	_, err = f.svc.CreateRejection(ctx, "", req)
	assert.True(t, apperror.Is(err, apperror.KindInactive), "got %v", err)

	_, err = f.svc.CreateRejection(ctx, "", f.rejection(5, "hole", f.cutting))
	assert.True(t, apperror.Is(err, apperror.KindNotFound), "no current entry left at the stage")

	assert.Equal(t, 200, f.reload(t, f.entry.ID).QuantityRemaining)
}

func TestCreateRejectionValidation(t *testing.T) {
	f := newLineFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateRejectionRequest
		kind apperror.Kind
	}{
		{"zero quantity", f.rejection(0, "stain", f.cutting), apperror.KindValidation},
		{"negative quantity", f.rejection(-3, "stain", f.cutting), apperror.KindValidation},
		{"missing reason", f.rejection(5, "", f.cutting), apperror.KindValidation},
		{"blank reason", f.rejection(5, "   ", f.cutting), apperror.KindValidation},
		{"same stage", f.rejection(5, "stain", f.stitching), apperror.KindValidation},
		{"unknown target stage", f.rejection(5, "stain", model.Department{ID: uuid.New()}), apperror.KindNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateRejection(ctx, "", tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperror.KindOf(err), err.Error())
		})
	}

	req := f.rejection(5, "stain", f.cutting)
	req.SubBatchID = "not-a-uuid"
	_, err := f.svc.CreateRejection(ctx, "", req)
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Fields, "sub_batch_id")

	req = f.rejection(5, "stain", f.cutting)
	req.SubBatchID = uuid.NewString()
	_, err = f.svc.CreateRejection(ctx, "", req)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	assert.Equal(t, 200, f.reload(t, f.entry.ID).QuantityRemaining)
}

func TestConcurrentRejectionsNeverOversubscribe(t *testing.T) {
	f := newLineFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateRejection(ctx, "", f.rejection(120, "shade variation", f.cutting))
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		kind := apperror.KindOf(err)
		assert.Contains(t, []apperror.Kind{apperror.KindInsufficientQuantity, apperror.KindConcurrentModification}, kind, err.Error())
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 80, f.reload(t, f.entry.ID).QuantityRemaining)

	records, err := f.repos.SplitRecords.ListRejections(ctx, f.subBatch.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFailedHistoryAppendRollsBackSplit(t *testing.T) {
	f := newLineFixture(t)
	ctx := context.Background()

	f.repos.History = failingHistory{f.repos.History}
	f.rebuild()

	_, err := f.svc.CreateRejection(ctx, "", f.rejection(50, "stain", f.cutting))
	require.Error(t, err)
	assert.Equal(t, apperror.Kind(""), apperror.KindOf(err))
	assert.Contains(t, err.Error(), "disk full")

	assert.Equal(t, 200, f.reload(t, f.entry.ID).QuantityRemaining)
	entries, err := f.repos.Ledger.ListBySubBatch(ctx, f.subBatch.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	records, err := f.repos.SplitRecords.ListRejections(ctx, f.subBatch.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	_, total, err := f.repos.Audit.List(ctx, 0, 10, "")
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, f.publisher.names())
}

func TestCreateAlterationTagsAlteredLineage(t *testing.T) {
	f := newLineFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateAlteration(ctx, "", CreateAlterationRequest{
		SubBatchID:  f.subBatch.ID.String(),
		FromStageID: f.stitching.ID.String(),
		ToStageID:   f.finishing.ID.String(),
		Quantity:    30,
		Note:        "shorten sleeves",
	})
	require.NoError(t, err)

	created := f.reload(t, res.Entry.ID)
	assert.Equal(t, model.LineageAltered, created.LineageTag)
	require.NotNil(t, created.AlterReason)
	assert.Equal(t, "shorten sleeves", *created.AlterReason)
	assert.Nil(t, created.RejectReason)
	assert.Equal(t, 170, f.reload(t, f.entry.ID).QuantityRemaining)

	assert.Equal(t, model.EventAlteration, res.History.EventType)
	assert.Equal(t, created.ID, res.Record.CreatedLedgerEntryID)

	alterations, err := f.repos.SplitRecords.ListAlterations(ctx, f.subBatch.ID)
	require.NoError(t, err)
	assert.Len(t, alterations, 1)
	rejections, err := f.repos.SplitRecords.ListRejections(ctx, f.subBatch.ID)
	require.NoError(t, err)
	assert.Empty(t, rejections)
}

func TestSplitRecordsResolveToLedgerEntries(t *testing.T) {
	f := newLineFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRejection(ctx, "", f.rejection(20, "stain", f.cutting))
	require.NoError(t, err)
	_, err = f.svc.CreateAlteration(ctx, "", CreateAlterationRequest{
		SubBatchID: f.subBatch.ID.String(), FromStageID: f.stitching.ID.String(), ToStageID: f.finishing.ID.String(),
		Quantity: 15, Note: "resize",
	})
	require.NoError(t, err)
	_, err = f.svc.CreateRejection(ctx, "", f.rejection(10, "broken seam", f.packing))
	require.NoError(t, err)

	rejections, err := f.repos.SplitRecords.ListRejections(ctx, f.subBatch.ID)
	require.NoError(t, err)
	alterations, err := f.repos.SplitRecords.ListAlterations(ctx, f.subBatch.ID)
	require.NoError(t, err)

	type link struct {
		source, created uuid.UUID
		quantity        int
	}
	var links []link
	for _, r := range rejections {
		links = append(links, link{r.SourceLedgerEntryID, r.CreatedLedgerEntryID, r.Quantity})
	}
	for _, a := range alterations {
		links = append(links, link{a.SourceLedgerEntryID, a.CreatedLedgerEntryID, a.Quantity})
	}
	require.Len(t, links, 3)

	moved := 0
	for _, l := range links {
		f.reload(t, l.source)
		created := f.reload(t, l.created)
		assert.Equal(t, l.quantity, created.TotalQuantity)
		moved += l.quantity
	}
	assert.Equal(t, 200-moved, f.reload(t, f.entry.ID).QuantityRemaining)
}

func TestAdvanceHandsOffMainTranche(t *testing.T) {
	f := newLineFixture(t)
	ctx := context.Background()

	res, err := f.svc.Advance(ctx, "", f.entry.ID.String(), AdvanceRequest{ToStageID: f.finishing.ID.String(), Quantity: 120})
	require.NoError(t, err)

	source := f.reload(t, f.entry.ID)
	assert.Equal(t, 80, source.QuantityRemaining)
	require.NotNil(t, source.SentToStageID)
	assert.Equal(t, f.finishing.ID, *source.SentToStageID)

	assert.Equal(t, model.LineageMain, res.Entry.LineageTag)
	assert.Equal(t, 120, res.Entry.TotalQuantity)
	assert.Equal(t, model.EventAdvance, res.History.EventType)
	require.NotNil(t, res.History.FromStageID)
	assert.Equal(t, f.stitching.ID, *res.History.FromStageID)

	// finishing still holds 120 of the first hand-off
	_, err = f.svc.Advance(ctx, "", f.entry.ID.String(), AdvanceRequest{ToStageID: f.finishing.ID.String(), Quantity: 80})
	assert.True(t, apperror.Is(err, apperror.KindValidation), "got %v", err)
	assert.Equal(t, 80, f.reload(t, f.entry.ID).QuantityRemaining)

	_, err = f.svc.Advance(ctx, "", res.Entry.ID.String(), AdvanceRequest{ToStageID: f.packing.ID.String(), Quantity: 120})
	require.NoError(t, err)

	second, err := f.svc.Advance(ctx, "", f.entry.ID.String(), AdvanceRequest{ToStageID: f.finishing.ID.String(), Quantity: 80})
	require.NoError(t, err)
	assert.False(t, f.reload(t, res.Entry.ID).IsCurrent, "the exhausted finishing tranche is retired")
	assert.True(t, f.reload(t, second.Entry.ID).IsCurrent)

	active, err := f.svc.FindActiveEntry(ctx, f.subBatch.ID.String(), f.finishing.ID.String())
	require.NoError(t, err)
	assert.Equal(t, second.Entry.ID, active.ID)

	assert.Equal(t, []string{EventTrancheAdvanced, EventTrancheAdvanced, EventTrancheAdvanced}, f.publisher.names())
}

func TestStartSubBatchPlacesQuantityAtFirstStage(t *testing.T) {
	f := newLineFixture(t)
	ctx := context.Background()

	fresh := testutil.SeedSubBatch(t, f.db, "SB-200", 300, f.cutting, f.stitching)
	res, err := f.svc.StartSubBatch(ctx, "", fresh.ID.String())
	require.NoError(t, err)

	assert.Nil(t, res.Source)
	assert.Equal(t, f.cutting.ID, res.Entry.StageID)
	assert.Equal(t, 300, res.Entry.TotalQuantity)
	assert.Equal(t, 300, res.Entry.QuantityRemaining)
	assert.Equal(t, model.LineageMain, res.Entry.LineageTag)
	assert.Equal(t, model.EventArrival, res.History.EventType)
	assert.Nil(t, res.History.FromStageID)

	_, err = f.svc.StartSubBatch(ctx, "", fresh.ID.String())
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	orphan := model.SubBatch{Name: "SB-300", Quantity: 10}
	require.NoError(t, f.db.Create(&orphan).Error)
	_, err = f.svc.StartSubBatch(ctx, "", orphan.ID.String())
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.StartSubBatch(ctx, "", uuid.NewString())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestAssignWorker(t *testing.T) {
	f := newLineFixture(t)
	ctx := context.Background()
	worker := testutil.SeedWorker(t, f.db, "Asha", &f.stitching.ID)

	workerID := worker.ID.String()
	entry, err := f.svc.AssignWorker(ctx, "", f.entry.ID.String(), AssignWorkerRequest{WorkerID: &workerID})
	require.NoError(t, err)
	require.NotNil(t, entry.AssignedWorkerID)
	assert.Equal(t, worker.ID, *entry.AssignedWorkerID)

	entry, err = f.svc.AssignWorker(ctx, "", f.entry.ID.String(), AssignWorkerRequest{})
	require.NoError(t, err)
	assert.Nil(t, entry.AssignedWorkerID)
	assert.Nil(t, f.reload(t, f.entry.ID).AssignedWorkerID)

	unknown := uuid.NewString()
	_, err = f.svc.AssignWorker(ctx, "", f.entry.ID.String(), AssignWorkerRequest{WorkerID: &unknown})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.svc.AssignWorker(ctx, "", uuid.NewString(), AssignWorkerRequest{WorkerID: &workerID})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	require.NoError(t, f.repos.Ledger.SetCurrent(ctx, f.entry.ID, false))
	_, err = f.svc.AssignWorker(ctx, "", f.entry.ID.String(), AssignWorkerRequest{WorkerID: &workerID})
	assert.True(t, apperror.Is(err, apperror.KindInactive))

	assert.Equal(t, []string{EventWorkerAssigned, EventWorkerAssigned}, f.publisher.names())
}

func TestRejectionLinksToWorkLog(t *testing.T) {
	f := newLineFixture(t)
	ctx := context.Background()
	worker := testutil.SeedWorker(t, f.db, "Ravi", &f.stitching.ID)
	log := testutil.SeedWorkLog(t, f.db, f.entry, worker, testutil.Day(2026, 3, 2), 60, 5, true)

	req := f.rejection(4, "skipped stitch", f.cutting)
	req.WorkLogID = log.ID.String()
	res, err := f.svc.CreateRejection(ctx, "", req)
	require.NoError(t, err)
	require.NotNil(t, res.Record.WorkLogID)
	assert.Equal(t, log.ID, *res.Record.WorkLogID)

	refs, err := f.repos.SplitRecords.CountByWorkLog(ctx, log.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), refs)

	elsewhere := testutil.SeedEntry(t, f.db, f.subBatch.ID, f.finishing.ID, 10)
	otherLog := testutil.SeedWorkLog(t, f.db, elsewhere, worker, testutil.Day(2026, 3, 2), 5, 5, true)
	req = f.rejection(4, "skipped stitch", f.packing)
	req.WorkLogID = otherLog.ID.String()
	_, err = f.svc.CreateRejection(ctx, "", req)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestLedgerReads(t *testing.T) {
	f := newLineFixture(t)
	ctx := context.Background()

	active, err := f.svc.FindActiveEntry(ctx, f.subBatch.ID.String(), f.stitching.ID.String())
	require.NoError(t, err)
	assert.Equal(t, f.entry.ID, active.ID)

	_, err = f.svc.FindActiveEntry(ctx, f.subBatch.ID.String(), f.packing.ID.String())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.svc.CreateRejection(ctx, "", f.rejection(5, "stain", f.cutting))
	require.NoError(t, err)

	entries, err := f.svc.ListLedgerEntries(ctx, f.subBatch.ID.String())
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = f.svc.ListLedgerEntries(ctx, uuid.NewString())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestRepeatedSplitsToOneStageEachOpenATranche(t *testing.T) {
	f := newLineFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateRejection(ctx, "", f.rejection(30, "stain", f.cutting))
	require.NoError(t, err)
	second, err := f.svc.CreateRejection(ctx, "", f.rejection(20, "torn seam", f.cutting))
	require.NoError(t, err)
	assert.NotEqual(t, first.Entry.ID, second.Entry.ID)

	alterTo := func(qty int, note string) error {
		_, err := f.svc.CreateAlteration(ctx, "", CreateAlterationRequest{
			SubBatchID: f.subBatch.ID.String(), FromStageID: f.stitching.ID.String(), ToStageID: f.finishing.ID.String(),
			Quantity: qty, Note: note,
		})
		return err
	}
	require.NoError(t, alterTo(10, "shorten sleeves"))
	require.NoError(t, alterTo(5, "move pocket"))

	assert.Equal(t, 135, f.reload(t, f.entry.ID).QuantityRemaining)
	assert.True(t, f.reload(t, first.Entry.ID).IsCurrent, "the earlier split keeps its pieces open")
	assert.Equal(t, 30, f.reload(t, first.Entry.ID).QuantityRemaining)
	assert.True(t, f.reload(t, second.Entry.ID).IsCurrent)

	entries, err := f.svc.ListLedgerEntries(ctx, f.subBatch.ID.String())
	require.NoError(t, err)
	pieces := 0
	for _, e := range entries {
		if e.ID != f.entry.ID {
			pieces += e.TotalQuantity
		}
	}
	assert.Equal(t, 200-135, pieces, "every piece debited is credited exactly once")

	rejections, err := f.repos.SplitRecords.ListRejections(ctx, f.subBatch.ID)
	require.NoError(t, err)
	assert.Len(t, rejections, 2)
}
