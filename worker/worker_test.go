package worker

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sendhub/sendhub/models"
	"github.com/sendhub/sendhub/queue"
)

type fakeStore struct {
	user   *models.User
	cfg    *models.SmtpConfig
	logs   []*models.EmailLog
	logErr error
}

func (s *fakeStore) UserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, nil
}

func (s *fakeStore) SmtpConfigByID(_ context.Context, id primitive.ObjectID) (*models.SmtpConfig, error) {
	if s.cfg != nil && s.cfg.ID == id {
		return s.cfg, nil
	}
	return nil, nil
}

func (s *fakeStore) InsertEmailLog(_ context.Context, log *models.EmailLog) error {
	if s.logErr != nil {
		return s.logErr
	}
	s.logs = append(s.logs, log)
	return nil
}

type fakeSender struct {
	err   error
	sends int
}

func (s *fakeSender) Send(*models.SmtpConfig, string, string, string) error {
	s.sends++
	return s.err
}

func newFakeStore() *fakeStore {
	cfgID := primitive.NewObjectID()
	userID := primitive.NewObjectID()
	return &fakeStore{
		user: &models.User{ID: userID, Smtp: cfgID, Plan: primitive.NewObjectID()},
		cfg:  &models.SmtpConfig{ID: cfgID, User: userID, Host: "smtp.acme.com", Port: 587, Username: "u"},
	}
}

func jobFor(store *fakeStore) *queue.DispatchJob {
	return &queue.DispatchJob{
		ID:      "job-1",
		UserID:  store.user.ID.Hex(),
		To:      "rcpt@acme.com",
		Subject: "Hi",
		HTML:    "<p>Hi</p>",
		Type:    models.TemplateStatic,
	}
}

func TestPipelineSuccessWritesLedgerRow(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	p := &Pipeline{Store: store, Sender: sender}

	err := p.Process(context.Background(), jobFor(store))
	require.NoError(t, err)
	assert.Equal(t, 1, sender.sends)
	require.Len(t, store.logs, 1)
	assert.Equal(t, models.StatusSuccess, store.logs[0].Status)
	assert.Equal(t, "rcpt@acme.com", store.logs[0].To)
	assert.Empty(t, store.logs[0].Error)
}

func TestPipelineTransportFailureIsRetryable(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{err: errors.New("connection refused")}
	p := &Pipeline{Store: store, Sender: sender}

	err := p.Process(context.Background(), jobFor(store))
	require.Error(t, err)
	assert.False(t, queue.IsPermanent(err), "transport failures retry")
	// The failed attempt still left a ledger row.
	require.Len(t, store.logs, 1)
	assert.Equal(t, models.StatusFailed, store.logs[0].Status)
	assert.Contains(t, store.logs[0].Error, "connection refused")
}

func TestPipelineMissingUserIsPermanent(t *testing.T) {
	store := newFakeStore()
	job := jobFor(store)
	job.UserID = primitive.NewObjectID().Hex() // unknown user
	p := &Pipeline{Store: store, Sender: &fakeSender{}}

	err := p.Process(context.Background(), job)
	require.Error(t, err)
	assert.True(t, queue.IsPermanent(err))
	require.Len(t, store.logs, 1)
	assert.Equal(t, models.StatusFailed, store.logs[0].Status)
}

func TestPipelineMissingSmtpConfigIsPermanent(t *testing.T) {
	store := newFakeStore()
	store.user.Smtp = primitive.NilObjectID
	p := &Pipeline{Store: store, Sender: &fakeSender{}}

	err := p.Process(context.Background(), jobFor(store))
	require.Error(t, err)
	assert.True(t, queue.IsPermanent(err))
}

func TestPipelineMalformedUserIDIsPermanent(t *testing.T) {
	store := newFakeStore()
	job := jobFor(store)
	job.UserID = "not-an-object-id"
	sender := &fakeSender{}
	p := &Pipeline{Store: store, Sender: sender}

	err := p.Process(context.Background(), job)
	require.Error(t, err)
	assert.True(t, queue.IsPermanent(err))
	assert.Zero(t, sender.sends)
}

func TestPipelineLedgerWriteFailureFailsTheJob(t *testing.T) {
	store := newFakeStore()
	store.logErr = errors.New("mongo down")
	p := &Pipeline{Store: store, Sender: &fakeSender{}}

	err := p.Process(context.Background(), jobFor(store))
	require.Error(t, err)
	// Not permanent: the send may have gone out, but the attempt retries
	// until the ledger row exists.
	assert.False(t, queue.IsPermanent(err))
}

// ctxCheckedStore rejects writes on a cancelled context, as the real Mongo
// driver would.
type ctxCheckedStore struct {
	*fakeStore
}

func (s *ctxCheckedStore) InsertEmailLog(ctx context.Context, log *models.EmailLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fakeStore.InsertEmailLog(ctx, log)
}

// blockingSender holds each send until released, so a test can cancel the
// worker while a job is mid-delivery.
type blockingSender struct {
	started chan struct{}
	release chan struct{}
}

func (s *blockingSender) Send(*models.SmtpConfig, string, string, string) error {
	s.started <- struct{}{}
	<-s.release
	return nil
}

type fakeJobSource struct {
	mu      sync.Mutex
	pending []*queue.ClaimedJob
	done    int
	failed  int
}

func (s *fakeJobSource) Claim(ctx context.Context) (*queue.ClaimedJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, nil
	}
	c := s.pending[0]
	s.pending = s.pending[1:]
	return c, nil
}

func (s *fakeJobSource) Done(ctx context.Context, _ *queue.ClaimedJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done++
	return nil
}

func (s *fakeJobSource) Fail(ctx context.Context, _ *queue.ClaimedJob, _ error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	return nil
}

func (s *fakeJobSource) Discard(ctx context.Context, c *queue.ClaimedJob, cause error) error {
	return s.Fail(ctx, c, cause)
}

func (s *fakeJobSource) PromoteDue(context.Context) error { return nil }

func (s *fakeJobSource) Reclaim(context.Context) (int, error) { return 0, nil }

func TestRunDrainsInFlightJobOnShutdown(t *testing.T) {
	store := newFakeStore()
	checked := &ctxCheckedStore{fakeStore: store}
	sender := &blockingSender{started: make(chan struct{}), release: make(chan struct{})}
	source := &fakeJobSource{pending: []*queue.ClaimedJob{{Job: jobFor(store)}}}

	w, err := New(source, &Pipeline{Store: checked, Sender: sender}, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- w.Run(ctx) }()

	// Cancel while the job is mid-send, then let the send finish.
	<-sender.started
	cancel()
	close(sender.release)

	require.NoError(t, <-runDone)

	source.mu.Lock()
	defer source.mu.Unlock()
	assert.Equal(t, 1, source.done, "in-flight job acks after cancellation")
	assert.Equal(t, 0, source.failed)
	require.Len(t, store.logs, 1)
	assert.Equal(t, models.StatusSuccess, store.logs[0].Status)
}

func TestPipelineRecordsTemplateAndGroupRefs(t *testing.T) {
	store := newFakeStore()
	job := jobFor(store)
	tmplID := primitive.NewObjectID()
	groupID := primitive.NewObjectID()
	job.TemplateID = tmplID.Hex()
	job.GroupID = groupID.Hex()
	p := &Pipeline{Store: store, Sender: &fakeSender{}}

	require.NoError(t, p.Process(context.Background(), job))
	require.Len(t, store.logs, 1)
	require.NotNil(t, store.logs[0].Template)
	assert.Equal(t, tmplID, *store.logs[0].Template)
	require.NotNil(t, store.logs[0].Group)
	assert.Equal(t, groupID, *store.logs[0].Group)
}
