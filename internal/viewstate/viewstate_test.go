package viewstate

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"crowdfund/internal/domain"
)

var now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

type stubSource struct {
	mu        sync.Mutex
	campaigns []domain.Campaign
	err       error
	donations map[int64][]domain.Donation
	donorErr  error
}

func (s *stubSource) ListCampaigns(context.Context) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.Campaign(nil), s.campaigns...), nil
}

func (s *stubSource) ListCampaignsByOwner(ctx context.Context, owner string) ([]domain.Campaign, error) {
	all, err := s.ListCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Campaign
	for _, c := range all {
		if c.OwnedBy(owner) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubSource) ListDonations(_ context.Context, pid int64) ([]domain.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.donorErr != nil {
		return nil, s.donorErr
	}
	return s.donations[pid], nil
}

func camp(pid int64, title string, target, collected string, deadline time.Duration) domain.Campaign {
	return domain.Campaign{
		PID:             pid,
		Owner:           "0x1111111111111111111111111111111111111111",
		Title:           title,
		Description:     title + " needs help",
		Target:          decimal.RequireFromString(target),
		AmountCollected: decimal.RequireFromString(collected),
		Deadline:        now.Add(deadline),
		IsActive:        true,
	}
}

func sample() []domain.Campaign {
	a := camp(0, "School Roof", "10", "2", 48*time.Hour)
	a.Category = "education"
	b := camp(1, "Clinic", "5", "5", 10*24*time.Hour)
	b.Category = "Health"
	c := camp(2, "River cleanup", "1", "0.1", -24*time.Hour)
	c.Category = "environment"
	d := camp(3, "ÉCOLE library", "20", "1", 3*24*time.Hour)
	d.IsActive = false
	return []domain.Campaign{a, b, c, d}
}

func newLoadedStore(t *testing.T, campaigns []domain.Campaign) *Store {
	t.Helper()
	s, err := NewStore(Options{Source: &stubSource{campaigns: campaigns}, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return s
}

func pids(list []domain.Campaign) []int64 {
	out := make([]int64, len(list))
	for i, c := range list {
		out[i] = c.PID
	}
	return out
}

func equalPIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSearchMatchesCaseInsensitively(t *testing.T) {
	s := newLoadedStore(t, sample())
	tests := []struct {
		search string
		want   []int64
	}{
		{"clinic", []int64{1}},
		{"HEALTH", []int64{1}},
		{"needs HELP", []int64{1, 3, 0, 2}},
		{"école", []int64{3}},
		{"ecole", nil},
		{"roof ", []int64{0}},
		{" ", []int64{1, 3, 0, 2}},
		{"  ", nil},
		{"", []int64{1, 3, 0, 2}},
	}
	for _, tc := range tests {
		t.Run(tc.search, func(t *testing.T) {
			got := s.ApplyFilters(Query{Search: tc.search})
			if !equalPIDs(pids(got), tc.want) {
				t.Fatalf("search %q = %v, want %v", tc.search, pids(got), tc.want)
			}
			for _, c := range got {
				hay := strings.ToLower(c.Title + "\n" + c.Description + "\n" + c.Category)
				if !strings.Contains(hay, strings.ToLower(tc.search)) {
					t.Fatalf("campaign %d does not contain %q", c.PID, tc.search)
				}
			}
		})
	}
}

func TestSortIsPermutation(t *testing.T) {
	s := newLoadedStore(t, sample())
	for _, key := range SortKeys {
		got := s.ApplyFilters(Query{Sort: key})
		if len(got) != len(sample()) {
			t.Fatalf("%s: len %d", key, len(got))
		}
		seen := map[int64]bool{}
		for _, c := range got {
			if seen[c.PID] {
				t.Fatalf("%s: duplicate pid %d", key, c.PID)
			}
			seen[c.PID] = true
		}
	}
}

func TestSortOrders(t *testing.T) {
	s := newLoadedStore(t, sample())
	tests := []struct {
		key  SortKey
		want []int64
	}{
		{SortNewest, []int64{1, 3, 0, 2}},
		{SortOldest, []int64{2, 0, 3, 1}},
		{SortTargetHigh, []int64{3, 0, 1, 2}},
		{SortTargetLow, []int64{2, 1, 0, 3}},
		{SortProgress, []int64{1, 0, 2, 3}},
		{SortDeadline, []int64{0, 3, 1, 2}},
		{"bogus", []int64{1, 3, 0, 2}},
	}
	for _, tc := range tests {
		t.Run(string(tc.key), func(t *testing.T) {
			got := pids(s.ApplyFilters(Query{Sort: tc.key}))
			if !equalPIDs(got, tc.want) {
				t.Fatalf("%s = %v, want %v", tc.key, got, tc.want)
			}
		})
	}
}

func TestDeadlineSortPutsExpiredLast(t *testing.T) {
	list := []domain.Campaign{
		camp(0, "past", "1", "0", -365*24*time.Hour),
		camp(1, "far", "1", "0", 30*24*time.Hour),
		camp(2, "near", "1", "0", time.Hour),
	}
	got := pids(Filter(list, Query{Sort: SortDeadline}, now))
	if want := []int64{2, 1, 0}; !equalPIDs(got, want) {
		t.Fatalf("deadline order = %v, want %v", got, want)
	}
}

func TestFilterIsPureAndIdempotent(t *testing.T) {
	list := sample()
	q := Query{Search: "e", Sort: SortProgress}
	first := Filter(list, q, now)
	second := Filter(list, q, now)
	if !equalPIDs(pids(first), pids(second)) {
		t.Fatalf("repeat derivation differs: %v vs %v", pids(first), pids(second))
	}
	if !equalPIDs(pids(list), []int64{0, 1, 2, 3}) {
		t.Fatalf("input reordered: %v", pids(list))
	}
}

func TestCategoryFilter(t *testing.T) {
	s := newLoadedStore(t, sample())
	if got := pids(s.ApplyFilters(Query{Category: "health"})); !equalPIDs(got, []int64{1}) {
		t.Fatalf("health = %v", got)
	}
	if got := s.ApplyFilters(Query{Category: "all"}); len(got) != 4 {
		t.Fatalf("all = %d campaigns", len(got))
	}
	if got := s.ApplyFilters(Query{Category: "sports"}); len(got) != 0 {
		t.Fatalf("unknown category = %v", pids(got))
	}
	if got := pids(s.ApplyFilters(Query{HideInactive: true})); len(got) != 3 {
		t.Fatalf("hide inactive = %v", got)
	}
}

func TestAggregate(t *testing.T) {
	empty := newLoadedStore(t, nil)
	st := empty.Aggregate()
	if st.TotalCampaigns != 0 || st.ActiveCampaigns != 0 || !st.TotalRaised.IsZero() || st.TotalBackers != 0 {
		t.Fatalf("empty aggregate = %+v", st)
	}

	zero := camp(0, "zero target", "0", "5", time.Hour)
	one := newLoadedStore(t, []domain.Campaign{zero})
	st = one.Aggregate()
	if st.TotalCampaigns != 1 || st.ActiveCampaigns != 1 || !st.TotalRaised.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("aggregate = %+v", st)
	}
	if got := one.ApplyFilters(Query{Sort: SortProgress}); len(got) != 1 || !got[0].Progress().IsZero() {
		t.Fatalf("zero-target progress = %v", got)
	}

	list := sample()
	list[0].Donors, list[0].DonorsKnown = 3, true
	list[1].Donors, list[1].DonorsKnown = 2, true
	st = Summarize(list, now)
	if st.ActiveCampaigns != 3 || st.TotalBackers != 5 {
		t.Fatalf("aggregate = %+v", st)
	}
	if !st.TotalRaised.Equal(decimal.RequireFromString("8.1")) {
		t.Fatalf("total raised = %s", st.TotalRaised)
	}
}

func TestRefreshLifecycle(t *testing.T) {
	src := &stubSource{campaigns: sample()}
	s, err := NewStore(Options{Source: src, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if s.State() != StateIdle || s.Loaded() {
		t.Fatalf("new store state = %s", s.State())
	}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if v := s.Snapshot(); v.State != StateReady || len(v.Campaigns) != 4 || !v.LoadedAt.Equal(now) {
		t.Fatalf("snapshot = %+v", v)
	}

	src.err = &domain.Error{Kind: domain.KindLedgerUnavailable, Message: "contract not connected"}
	if err := s.Refresh(context.Background()); !errors.Is(err, domain.ErrLedgerUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	v := s.Snapshot()
	if v.State != StateError || v.Err == nil {
		t.Fatalf("expected error state, got %+v", v)
	}
	if len(v.Campaigns) != 4 {
		t.Fatalf("failed refresh must keep the previous set, got %d", len(v.Campaigns))
	}

	src.err = nil
	src.campaigns = sample()[:1]
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if s.Err() != nil || len(s.Snapshot().Campaigns) != 1 {
		t.Fatalf("expected wholesale replacement, got %d campaigns", len(s.Snapshot().Campaigns))
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newLoadedStore(t, sample())
	v := s.Snapshot()
	v.Campaigns[0].Title = "changed"
	if c, _ := s.Find(0); c.Title == "changed" {
		t.Fatal("snapshot shares storage with the store")
	}
}

func TestDonorCounts(t *testing.T) {
	src := &stubSource{
		campaigns: sample()[:2],
		donations: map[int64][]domain.Donation{
			0: {{PID: 0, Donor: "a"}, {PID: 0, Donor: "b"}},
			1: {{PID: 1, Donor: "c"}},
		},
	}
	s, err := NewStore(Options{Source: src, DonorCounts: true, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if st := s.Aggregate(); st.TotalBackers != 3 {
		t.Fatalf("backers = %d", st.TotalBackers)
	}

	src.donorErr = errors.New("node down")
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("donor failures must not fail the refresh: %v", err)
	}
	if st := s.Aggregate(); st.TotalBackers != 0 {
		t.Fatalf("backers = %d, want 0 when counts are unknown", st.TotalBackers)
	}
}

func TestNotices(t *testing.T) {
	s := newLoadedStore(t, nil)
	if _, ok := s.Notice(); ok {
		t.Fatal("unexpected notice")
	}
	s.SetNotice(NoticeSuccess, "Donation confirmed", false)
	if n, ok := s.Notice(); !ok || n.Kind != NoticeSuccess {
		t.Fatalf("notice = %+v", n)
	}
	s.ClearNotice()
	if _, ok := s.Notice(); ok {
		t.Fatal("notice should be cleared")
	}

	n := NoticeFor(&domain.Error{Kind: domain.KindTransactionFailed, Cause: domain.CauseNetwork, Message: "network error"})
	if !n.Retryable || n.Message != "network error" {
		t.Fatalf("notice = %+v", n)
	}
	if NoticeFor(&domain.Error{Kind: domain.KindTransactionRejected}).Retryable {
		t.Fatal("rejections should not offer retry")
	}
}

func TestParseQuery(t *testing.T) {
	q := ParseQuery(url.Values{"search": {"water "}, "category": {"Health"}, "sort": {"TARGET_HIGH"}})
	if q.Search != "water " || q.Category != "health" || q.Sort != SortTargetHigh {
		t.Fatalf("query = %+v", q)
	}
	if got := q.Values().Encode(); got != "category=health&search=water+&sort=target_high" {
		t.Fatalf("encoded = %s", got)
	}
	if q := ParseQuery(url.Values{}); q.Sort != SortNewest || q.Category != "all" {
		t.Fatalf("default query = %+v", q)
	}
}

func TestRegistryScopesByOwner(t *testing.T) {
	list := sample()
	list[2].Owner = "0x2222222222222222222222222222222222222222"
	reg, err := NewRegistry(Options{Source: &stubSource{campaigns: list}, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	store := reg.ForOwner("0x2222222222222222222222222222222222222222")
	if reg.ForOwner("0X2222222222222222222222222222222222222222") != store {
		t.Fatal("owner stores should be shared case-insensitively")
	}
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := pids(store.Snapshot().Campaigns); !equalPIDs(got, []int64{2}) {
		t.Fatalf("owner campaigns = %v", got)
	}
	if reg.All().Owner() != "" {
		t.Fatal("listing store must not be owner scoped")
	}
}

func TestRegistryEvictsLeastRecentlyUsedProfile(t *testing.T) {
	const (
		a = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
		b = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
		c = "0xcccccccccccccccccccccccccccccccccccccccc"
	)
	reg, err := NewRegistry(Options{Source: &stubSource{campaigns: sample()}, MaxProfiles: 2})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	storeA := reg.ForOwner(a)
	storeB := reg.ForOwner(b)
	if got, ok := reg.Lookup(a); !ok || got != storeA {
		t.Fatal("lookup should return the existing store")
	}
	storeC := reg.ForOwner(c)

	if reg.Profiles() != 2 {
		t.Fatalf("profiles = %d, want 2", reg.Profiles())
	}
	if _, ok := reg.Lookup(b); ok {
		t.Fatal("least recently used store should have been evicted")
	}
	if got, _ := reg.Lookup(a); got != storeA {
		t.Fatal("recently used store should be kept")
	}
	if got, _ := reg.Lookup(c); got != storeC {
		t.Fatal("newest store should be kept")
	}
	if reg.ForOwner(b) == storeB {
		t.Fatal("evicted owner should get a new store")
	}
	if _, ok := reg.Lookup("0xdddddddddddddddddddddddddddddddddddddddd"); ok || reg.Profiles() != 2 {
		t.Fatal("lookup must not create stores")
	}
}
