package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/wadjakorntonsri/custom-links/pkg/core/domain"
	"github.com/wadjakorntonsri/custom-links/pkg/core/indexes"
	"github.com/wadjakorntonsri/custom-links/pkg/core/keys"
	"github.com/wadjakorntonsri/custom-links/pkg/core/search"
	"github.com/wadjakorntonsri/custom-links/pkg/ports"
)

const DefaultCompleteMinLength = 2

// Options tunes a LinkService. Zero values select the defaults.
type Options struct {
	CompleteMinLength  int   // leading "/" not counted
	CompleteMaxResults int   // completions returned per query
	CompletePageSize   int64 // autocomplete members read per round trip
	FetchConcurrency   int   // parallel record reads in GetOwnedLinks
	Now                func() time.Time
}

// LinkService keeps link records, owner lists and the secondary indexes in
// step using only single-key store operations. Nothing spans keys
// atomically, so every multi-step operation reports exactly which step
// failed and what had already been committed.
type LinkService struct {
	store    ports.Store
	logger   *slog.Logger
	complete *indexes.Autocomplete
	targets  *indexes.Target
	indexers []ports.Indexer
	opts     Options

	pending sync.WaitGroup
}

func NewLinkService(store ports.Store, logger *slog.Logger, opts Options) *LinkService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.CompleteMinLength <= 0 {
		opts.CompleteMinLength = DefaultCompleteMinLength
	}
	if opts.CompletePageSize <= 0 {
		opts.CompletePageSize = indexes.DefaultPageSize
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 8
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	complete := indexes.NewAutocomplete(store, opts.CompleteMaxResults)
	targets := indexes.NewTarget(store)
	return &LinkService{
		store:    store,
		logger:   logger,
		complete: complete,
		targets:  targets,
		indexers: []ports.Indexer{complete, targets},
		opts:     opts,
	}
}

// Wait blocks until background access recording has finished.
func (s *LinkService) Wait() {
	s.pending.Wait()
}

func (s *LinkService) now() time.Time {
	return s.opts.Now().UTC().Truncate(time.Millisecond)
}

// Users

func (s *LinkService) UserExists(ctx context.Context, userID string) (bool, error) {
	exists, err := s.store.Exists(ctx, keys.User(userID))
	if err != nil {
		return false, fmt.Errorf("user exists %q: %w", userID, storeErr("check user list", err))
	}
	return exists, nil
}

// FindOrCreateUser creates the user's list with its sentinel entry unless it
// already exists, and reports whether it did.
func (s *LinkService) FindOrCreateUser(ctx context.Context, userID string) (bool, error) {
	exists, err := s.UserExists(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("find or create user %q: %w", userID, err)
	}
	if exists {
		return true, nil
	}
	if _, err := s.store.LPush(ctx, keys.User(userID), ""); err != nil {
		return false, fmt.Errorf("find or create user %q: %w", userID, storeErr("create user list", err))
	}
	return false, nil
}

// Links

// CreateLink claims path for owner and writes the record, then indexes it
// and adds it to the owner's list. When the claim and record write succeed
// but a later step fails, the link is returned together with the error.
func (s *LinkService) CreateLink(ctx context.Context, path, target, owner string) (*domain.Link, error) {
	wrap := func(err error) error {
		return fmt.Errorf("create link %q: %w", path, err)
	}

	exists, err := s.UserExists(ctx, owner)
	if err != nil {
		return nil, wrap(err)
	}
	if !exists {
		return nil, wrap(fmt.Errorf("%w: %s", domain.ErrUserNotFound, owner))
	}

	key := keys.Link(path)
	claimed, err := s.store.HSetNX(ctx, key, domain.FieldOwner, owner)
	if err != nil {
		return nil, wrap(storeErr("claim path", err))
	}
	if !claimed {
		current, _, err := s.store.HGet(ctx, key, domain.FieldOwner)
		if err != nil {
			return nil, wrap(storeErr("read existing owner", err))
		}
		return nil, wrap(&domain.AlreadyExistsError{Path: path, Owner: current})
	}

	now := s.now()
	link := &domain.Link{Path: path, Target: target, Owner: owner, Created: now, Updated: now}
	fields := encode(link)
	delete(fields, domain.FieldOwner)
	if err := s.store.HSet(ctx, key, fields); err != nil {
		missing := make([]string, 0, len(fields))
		for f := range fields {
			missing = append(missing, f)
		}
		slices.Sort(missing)
		return nil, wrap(&domain.IncompleteLinkError{Path: path, Missing: missing, Err: err})
	}

	var errs []error
	if err := s.eachIndexer(func(idx ports.Indexer) error {
		return idx.AddLink(ctx, path, link)
	}); err != nil {
		errs = append(errs, &domain.PartialFailureError{Op: "create", Path: path, Err: storeErr("index link", err)})
	}

	n, err := s.store.LPushX(ctx, keys.User(owner), path)
	switch {
	case err != nil:
		errs = append(errs, &domain.PartialFailureError{Op: "create", Path: path, Err: storeErr("add to owner list", err)})
	case n == 0:
		errs = append(errs, &domain.OwnerVanishedError{Path: path, Owner: owner})
	}

	if len(errs) > 0 {
		return link, wrap(errors.Join(errs...))
	}
	return link, nil
}

// GetLink returns the record for path. With RecordAccess set, the access
// counter is incremented in the background; a failed increment is logged
// and does not affect the result.
func (s *LinkService) GetLink(ctx context.Context, path string, opts ports.GetLinkOptions) (*domain.Link, error) {
	link, err := s.readLink(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("get link %q: %w", path, err)
	}
	if opts.RecordAccess {
		s.recordAccess(ctx, path)
	}
	return link, nil
}

func (s *LinkService) recordAccess(ctx context.Context, path string) {
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		_, ok, err := s.store.HIncrByIfExists(ctx, keys.Link(path), domain.FieldCount, 1)
		if err != nil {
			s.logger.Error("failed to record access", "path", path, "error", err)
			return
		}
		if !ok {
			s.logger.Warn("link deleted before access was recorded", "path", path)
		}
	}()
}

// GetOwnedLinks returns the owner's links, most recently added first.
func (s *LinkService) GetOwnedLinks(ctx context.Context, owner string) ([]domain.Link, error) {
	wrap := func(err error) error {
		return fmt.Errorf("owned links %q: %w", owner, err)
	}

	exists, err := s.UserExists(ctx, owner)
	if err != nil {
		return nil, wrap(err)
	}
	if !exists {
		return nil, wrap(domain.ErrUserNotFound)
	}

	entries, err := s.store.LRange(ctx, keys.User(owner), 0, -1)
	if err != nil {
		return nil, wrap(storeErr("read owner list", err))
	}
	paths := slices.DeleteFunc(entries, func(p string) bool { return p == "" })

	links := make([]domain.Link, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FetchConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			link, err := s.readLink(gctx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			links[i] = *link
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, wrap(err)
	}
	return links, nil
}

// UpdateProperty changes one updatable property of a link owned by owner and
// moves the link between index entries when the change requires it.
func (s *LinkService) UpdateProperty(ctx context.Context, path, owner, property, value string) error {
	wrap := func(err error) error {
		return fmt.Errorf("update %s of %q: %w", property, path, err)
	}

	if !domain.IsUpdatableProperty(property) {
		return wrap(domain.ErrInvalidProperty)
	}
	prev, err := s.ownedLink(ctx, path, owner)
	if err != nil {
		return wrap(err)
	}

	next := prev.WithProperty(property, value, s.now())
	set, err := s.store.HSetIfExists(ctx, keys.Link(path), map[string]string{
		property:            value,
		domain.FieldUpdated: formatTime(next.Updated),
	})
	if err != nil {
		return wrap(storeErr("write property", err))
	}
	if !set {
		return wrap(domain.ErrPropertyNotFound)
	}

	if err := s.eachIndexer(func(idx ports.Indexer) error {
		if !idx.ShouldReindexLink(path, prev, &next) {
			return nil
		}
		if err := idx.AddLink(ctx, path, &next); err != nil {
			return err
		}
		return idx.RemoveLink(ctx, path, prev)
	}); err != nil {
		return wrap(&domain.PartialFailureError{Op: "update", Path: path, Err: storeErr("reindex link", err)})
	}
	return nil
}

// ChangeOwner transfers path from owner to newOwner. The record is updated
// first; the owner lists follow.
func (s *LinkService) ChangeOwner(ctx context.Context, path, owner, newOwner string) error {
	wrap := func(err error) error {
		return fmt.Errorf("change owner of %q to %q: %w", path, newOwner, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.ownedLink(gctx, path, owner)
		return err
	})
	g.Go(func() error {
		exists, err := s.UserExists(gctx, newOwner)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", domain.ErrUserNotFound, newOwner)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return wrap(err)
	}

	set, err := s.store.HSetIfExists(ctx, keys.Link(path), map[string]string{
		domain.FieldOwner:   newOwner,
		domain.FieldUpdated: formatTime(s.now()),
	})
	if err != nil {
		return wrap(storeErr("write owner", err))
	}
	if !set {
		return wrap(domain.ErrPropertyNotFound)
	}

	var errs []error
	n, err := s.store.LPushX(ctx, keys.User(newOwner), path)
	switch {
	case err != nil:
		errs = append(errs, &domain.PartialFailureError{Op: "change owner", Path: path, Err: storeErr("add to new owner list", err)})
	case n == 0:
		errs = append(errs, &domain.OwnerVanishedError{Path: path, Owner: newOwner})
	}
	if err := s.removeFromOwner(ctx, "change owner", path, owner); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return wrap(errors.Join(errs...))
	}
	return nil
}

// DeleteLink removes a link owned by owner, then its index entries and its
// place in the owner's list.
func (s *LinkService) DeleteLink(ctx context.Context, path, owner string) error {
	wrap := func(err error) error {
		return fmt.Errorf("delete link %q: %w", path, err)
	}

	link, err := s.ownedLink(ctx, path, owner)
	if err != nil {
		return wrap(err)
	}
	deleted, err := s.store.Del(ctx, keys.Link(path))
	if err != nil {
		return wrap(storeErr("delete record", err))
	}
	if !deleted {
		return wrap(domain.ErrLinkNotFound)
	}

	var errs []error
	if err := s.eachIndexer(func(idx ports.Indexer) error {
		return idx.RemoveLink(ctx, path, link)
	}); err != nil {
		errs = append(errs, &domain.PartialFailureError{Op: "delete", Path: path, Err: storeErr("deindex link", err)})
	}
	if err := s.removeFromOwner(ctx, "delete", path, owner); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return wrap(errors.Join(errs...))
	}
	return nil
}

// Indexes

func (s *LinkService) GetLinksToTarget(ctx context.Context, target string) ([]string, error) {
	paths, err := s.targets.GetLinksToTarget(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("links to target %q: %w", target, storeErr("read target index", err))
	}
	return paths, nil
}

// CompleteLink returns live link paths starting with prefix.
func (s *LinkService) CompleteLink(ctx context.Context, prefix string) ([]string, error) {
	if utf8.RuneCountInString(strings.TrimPrefix(prefix, "/")) < s.opts.CompleteMinLength {
		return nil, fmt.Errorf("complete %q: %w (minimum %d)", prefix, domain.ErrPrefixTooShort, s.opts.CompleteMinLength)
	}
	paths, err := s.complete.CompleteString(ctx, prefix, s.opts.CompletePageSize)
	if err != nil {
		return nil, fmt.Errorf("complete %q: %w", prefix, storeErr("read autocomplete index", err))
	}
	return paths, nil
}

// Search

// SearchShortLinks returns the sorted paths of every link containing term.
// An empty term matches every link.
func (s *LinkService) SearchShortLinks(ctx context.Context, term string) ([]string, error) {
	paths, err := search.Keys(ctx, s.store, "/*"+keys.EscapeGlob(term)+"*")
	if err != nil {
		return nil, fmt.Errorf("search links %q: %w", term, storeErr("scan link keys", err))
	}
	if paths == nil {
		paths = []string{}
	}
	slices.Sort(paths)
	return paths, nil
}

// SearchTargetLinks returns, for every target URL containing term, the
// sorted paths redirecting to it.
func (s *LinkService) SearchTargetLinks(ctx context.Context, term string) (map[string][]string, error) {
	wrap := func(err error) error {
		return fmt.Errorf("search targets %q: %w", term, err)
	}

	found, err := search.Keys(ctx, s.store, keys.TargetPattern("*"+keys.EscapeGlob(term)+"*"))
	if err != nil {
		return nil, wrap(storeErr("scan target keys", err))
	}

	var mu sync.Mutex
	results := make(map[string][]string, len(found))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FetchConcurrency)
	for _, key := range found {
		target, ok := keys.TargetFromKey(key)
		if !ok {
			continue
		}
		g.Go(func() error {
			paths, err := s.targets.GetLinksToTarget(gctx, target)
			if err != nil {
				return err
			}
			mu.Lock()
			results[target] = paths
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, wrap(storeErr("read target index", err))
	}
	return results, nil
}

// AllLinks returns every link record, sorted by path.
func (s *LinkService) AllLinks(ctx context.Context) ([]domain.Link, error) {
	paths, err := s.SearchShortLinks(ctx, "")
	if err != nil {
		return nil, err
	}
	links := make([]domain.Link, 0, len(paths))
	for _, path := range paths {
		link, err := s.readLink(ctx, path)
		if errors.Is(err, domain.ErrLinkNotFound) {
			continue // deleted since the scan
		}
		if err != nil {
			return nil, fmt.Errorf("all links: %w", err)
		}
		links = append(links, *link)
	}
	return links, nil
}

// helpers

func (s *LinkService) readLink(ctx context.Context, path string) (*domain.Link, error) {
	fields, err := s.store.HGetAll(ctx, keys.Link(path))
	if err != nil {
		return nil, storeErr("read record", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrLinkNotFound
	}
	return decode(path, fields)
}

func (s *LinkService) ownedLink(ctx context.Context, path, owner string) (*domain.Link, error) {
	link, err := s.readLink(ctx, path)
	if err != nil {
		return nil, err
	}
	if link.Owner != owner {
		return nil, fmt.Errorf("%w: %s is owned by %s", domain.ErrNotOwner, path, link.Owner)
	}
	return link, nil
}

// removeFromOwner drops path from the owner's list. The caller has already
// committed the primary change, so a missing entry is an integrity fault.
func (s *LinkService) removeFromOwner(ctx context.Context, op, path, owner string) error {
	removed, err := s.store.LRem(ctx, keys.User(owner), 1, path)
	if err != nil {
		return &domain.PartialFailureError{Op: op, Path: path, Err: storeErr("remove from owner list", err)}
	}
	if removed == 0 {
		return &domain.IntegrityError{Op: op, Key: keys.User(owner), Value: path}
	}
	return nil
}

// eachIndexer runs fn against every indexer concurrently and joins the
// failures. A failing indexer does not stop the others.
func (s *LinkService) eachIndexer(fn func(ports.Indexer) error) error {
	errs := make([]error, len(s.indexers))
	var g errgroup.Group
	for i, idx := range s.indexers {
		g.Go(func() error {
			errs[i] = fn(idx)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func storeErr(step string, err error) error {
	return &domain.StoreError{Step: step, Err: err}
}

// Record encoding. Timestamps are Unix milliseconds.

func encode(link *domain.Link) map[string]string {
	return map[string]string{
		domain.FieldTarget:  link.Target,
		domain.FieldOwner:   link.Owner,
		domain.FieldCreated: formatTime(link.Created),
		domain.FieldUpdated: formatTime(link.Updated),
		domain.FieldCount:   strconv.FormatInt(link.Count, 10),
	}
}

func decode(path string, fields map[string]string) (*domain.Link, error) {
	link := &domain.Link{
		Path:   path,
		Target: fields[domain.FieldTarget],
		Owner:  fields[domain.FieldOwner],
	}
	var err error
	if link.Created, err = parseTime(fields[domain.FieldCreated]); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", path, domain.FieldCreated, err)
	}
	if link.Updated, err = parseTime(fields[domain.FieldUpdated]); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", path, domain.FieldUpdated, err)
	}
	if raw := fields[domain.FieldCount]; raw != "" {
		if link.Count, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", path, domain.FieldCount, err)
		}
	}
	return link, nil
}

func formatTime(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

// Ensure interface compliance
var _ ports.LinkStore = (*LinkService)(nil)
