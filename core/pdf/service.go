package pdf

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/gnarlyhq/gnarly/core"
	"github.com/gnarlyhq/gnarly/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("file not found")
	ErrOwnerNotFound = errors.New("user not found")
	ErrInvalidOwner  = errors.New("invalid userId")
	ErrMissingFile   = errors.New("missing file")
	ErrFileTooLarge  = errors.New("file exceeds the maximum allowed size")
	ErrNotPDF        = errors.New("only PDF files are allowed")
)

type (
	Repository interface {
		CreatePDF(ctx context.Context, rec PDF) (PDF, error)
		QueryAllPDFs(ctx context.Context) ([]PDF, error)
		QueryPDFsByUserID(ctx context.Context, userID int) ([]PDF, error)
		GetPDFByID(ctx context.Context, id int) (PDF, error)
		DeletePDFByID(ctx context.Context, id int) error
	}

	// Storage is the blob store holding raw uploaded bytes. Names are
	// generated, never user-controlled.
	Storage interface {
		RandomName(originalName string) (string, error)
		Save(name string, r io.Reader) (int64, error)
		// Remove must be idempotent: removing an absent blob is not an error.
		Remove(name string) error
	}

	// OwnerService resolves upload owners; satisfied by user.Service.
	OwnerService interface {
		GetByID(ctx context.Context, id int) (user.User, error)
	}

	Service struct {
		repo   Repository
		store  Storage
		owners OwnerService
		logger core.Logger
	}
)

func NewService(repo Repository, store Storage, owners OwnerService, logger core.Logger) *Service {
	return &Service{repo: repo, store: store, owners: owners, logger: logger}
}

// Upload validates, writes the blob, then inserts the metadata row.
// All validation happens before the blob write; if the insert fails after the
// blob landed on disk, the blob is removed again so no orphan survives the call.
func (svc *Service) Upload(ctx context.Context, up Upload) (Descriptor, error) {
	if err := up.Validate(); err != nil {
		return Descriptor{}, err
	}
	if _, err := svc.owners.GetByID(ctx, up.UserID); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Descriptor{}, ErrOwnerNotFound
		}
		return Descriptor{}, errors.Wrap(err, "resolving upload owner")
	}

	name, err := svc.store.RandomName(up.OriginalName)
	if err != nil {
		return Descriptor{}, errors.Wrap(err, "generating stored name")
	}
	size, err := svc.store.Save(name, up.Content)
	if err != nil {
		return Descriptor{}, errors.Wrap(err, "writing blob")
	}

	rec := PDF{
		UserID:       up.UserID,
		OriginalName: up.OriginalName,
		StoredName:   name,
		SizeBytes:    size,
		MimeType:     up.MimeType,
		UploadedAt:   time.Now().UTC(),
	}
	rec, err = svc.repo.CreatePDF(ctx, rec)
	if err != nil {
		// compensating delete; Remove is idempotent so a retry is harmless
		if rmErr := svc.store.Remove(name); rmErr != nil {
			svc.logger.Warn("removing orphaned blob "+name, rmErr)
		}
		return Descriptor{}, errors.Wrap(err, "inserting pdf record")
	}
	return rec.Descriptor(), nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Descriptor, error) {
	recs, err := svc.repo.QueryAllPDFs(ctx)
	if err != nil {
		return nil, err
	}
	return descriptors(recs), nil
}

func (svc *Service) QueryByOwner(ctx context.Context, userID int) ([]Descriptor, error) {
	recs, err := svc.repo.QueryPDFsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return descriptors(recs), nil
}

// Delete removes the metadata row, then unlinks the blob. The row delete is
// the authoritative outcome: a failed unlink is logged and swallowed, the
// blob merely lingers until swept by hand.
func (svc *Service) Delete(ctx context.Context, id int) error {
	rec, err := svc.repo.GetPDFByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeletePDFByID(ctx, id); err != nil {
		return err
	}
	if err = svc.store.Remove(rec.StoredName); err != nil {
		svc.logger.Warn("removing blob "+rec.StoredName, err)
	}
	return nil
}

func descriptors(recs []PDF) []Descriptor {
	descs := make([]Descriptor, 0, len(recs))
	for _, rec := range recs {
		descs = append(descs, rec.Descriptor())
	}
	return descs
}
