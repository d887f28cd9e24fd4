package referral

import (
	"context"
	"net/mail"
	"sync"

	"github.com/pkg/errors"

	"github.com/angeraphael/parrainage/core"
)

var (
	// errors
	ErrSuperseded = errors.New("referral tree load superseded by a newer request")
	ErrNoMessage  = errors.New("no share message available")

	shareSubject = "Rejoins-moi à l'auto école"
)

type (
	// Repository fetches referral data on behalf of the user owning token.
	Repository interface {
		// FetchTree returns the referral tree of the user, truncated at depth generations.
		// A nil Node means the user has no tree.
		FetchTree(ctx context.Context, token string, depth int) (*Node, error)
		FetchInfo(ctx context.Context, token string) (Info, error)
		FetchFilleuls(ctx context.Context, token string) ([]Filleul, error)
		FetchShareMessage(ctx context.Context, token string) (string, error)
	}

	Service struct {
		repo         Repository
		mailSvc      core.EmailService
		defaultDepth int
	}
)

func NewService(repo Repository, mailSvc core.EmailService, defaultDepth int) *Service {
	return &Service{
		repo:         repo,
		mailSvc:      mailSvc,
		defaultDepth: defaultDepth,
	}
}

func (svc *Service) Depth(depth int) int {
	if depth <= 0 {
		return svc.defaultDepth
	}
	return depth
}

// LoadTree fetches the user's tree and aggregates it into a fresh Snapshot.
func (svc *Service) LoadTree(ctx context.Context, token string, depth int) (*Snapshot, error) {
	depth = svc.Depth(depth)
	root, err := svc.repo.FetchTree(ctx, token, depth)
	if err != nil {
		if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
			err = &InvalidTreeError{Err: vErr}
		}
		return nil, errors.Wrap(err, "fetching referral tree")
	}
	snap, err := NewSnapshot(root, depth)
	if err != nil {
		return nil, errors.Wrap(err, "aggregating referral tree")
	}
	return snap, nil
}

func (svc *Service) Info(ctx context.Context, token string) (Info, error) {
	info, err := svc.repo.FetchInfo(ctx, token)
	if err != nil {
		return Info{}, errors.Wrap(err, "fetching referral info")
	}
	fillLabels(info.Filleuls)
	return info, nil
}

func (svc *Service) Filleuls(ctx context.Context, token string) ([]Filleul, error) {
	filleuls, err := svc.repo.FetchFilleuls(ctx, token)
	if err != nil {
		return nil, errors.Wrap(err, "fetching filleuls")
	}
	fillLabels(filleuls)
	return filleuls, nil
}

func fillLabels(filleuls []Filleul) {
	for i := range filleuls {
		filleuls[i].LevelLabel = filleuls[i].Label()
	}
}

// Share emails the user's referral invitation to the given recipients.
func (svc *Service) Share(ctx context.Context, token string, to ...mail.Address) error {
	if len(to) == 0 {
		return nil
	}
	msg, err := svc.repo.FetchShareMessage(ctx, token)
	if err != nil {
		return errors.Wrap(err, "fetching share message")
	}
	if core.CleanString(msg) == "" {
		return ErrNoMessage
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      to,
		Subject: shareSubject,
		BodyStr: msg,
	})
	return nil
}

// ShareRequest lists the addresses a referral invitation is sent to.
type ShareRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,max=20,dive,email"`
}

func (sr *ShareRequest) Validate() ([]mail.Address, error) {
	for i := range sr.Emails {
		sr.Emails[i] = core.CleanString(sr.Emails[i], true /* lower */)
	}
	if err := core.Validate.Struct(sr); err != nil {
		return nil, core.AsValidationError(err)
	}
	addrs := make([]mail.Address, 0, len(sr.Emails))
	for _, email := range sr.Emails {
		addrs = append(addrs, mail.Address{Address: email})
	}
	return addrs, nil
}

// Loader loads the tree of one user, last request wins: starting a load cancels the
// one in flight, and a load finishing after a newer one started is discarded.
type Loader struct {
	svc   *Service
	token string

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	current *Snapshot
}

func (svc *Service) NewLoader(token string) *Loader {
	return &Loader{svc: svc, token: token}
}

// Load fetches a new Snapshot. It fails with ErrSuperseded when a newer Load started meanwhile.
func (l *Loader) Load(ctx context.Context, depth int) (*Snapshot, error) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()
	defer cancel()

	snap, err := l.svc.LoadTree(ctx, l.token, depth)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return nil, ErrSuperseded
	}
	l.cancel = nil
	if err != nil {
		return nil, err
	}
	l.current = snap
	return snap, nil
}

// Current returns the last accepted Snapshot, nil before the first successful Load.
func (l *Loader) Current() *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Close cancels the load in flight, if any.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
