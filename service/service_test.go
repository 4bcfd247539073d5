package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/chat"
	"github.com/etnz/tracker/date"
	"github.com/etnz/tracker/store"
)

func EUR(v float64) tracker.Money { return tracker.M(v, "EUR") }

func entry(month string, growth, deposits, withdrawals float64) tracker.Entry {
	return tracker.Entry{
		Month:       date.MustParseMonth(month),
		Growth:      EUR(growth),
		Deposits:    EUR(deposits),
		Withdrawals: EUR(withdrawals),
	}
}

// clock returns a time.Now replacement advancing one minute per call.
func clock() func() time.Time {
	t := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func newService(t *testing.T, st store.Store, opts ...Option) *Service {
	t.Helper()
	s := New(st, append([]Option{WithClock(clock())}, opts...)...)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

// broken is a store whose writes always fail.
type broken struct{ *store.Memory }

func (broken) Put(context.Context, store.Document) error     { return errors.New("offline") }
func (broken) Delete(context.Context, string, string) error { return errors.New("offline") }

func TestService_Performance(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	s := newService(t, st)

	if err := s.SetStartingBalance(ctx, EUR(1000)); err != nil {
		t.Fatal(err)
	}
	mar, err := s.AddEntry(ctx, entry("2025-03", 62.25, 0, 245))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddEntry(ctx, entry("2025-01", 100, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddEntry(ctx, entry("2025-02", -55, 200, 0)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddEntry(ctx, entry("2025-02", 1, 0, 0)); !errors.Is(err, tracker.ErrDuplicateMonth) {
		t.Errorf("AddEntry() on a taken month error = %v, want ErrDuplicateMonth", err)
	}
	if _, err := s.AddEntry(ctx, entry("2025-04", 1, -5, 0)); !errors.Is(err, tracker.ErrInvalid) {
		t.Errorf("AddEntry() with negative deposits error = %v, want ErrInvalid", err)
	}
	if mar.ID == "" || mar.CreatedAt.IsZero() {
		t.Errorf("AddEntry() did not set id and timestamps: %+v", mar)
	}

	sum := s.Summary()
	if !sum.CurrentBalance.Equal(EUR(1062.25)) || sum.Months != 3 {
		t.Errorf("Summary() = %+v", sum)
	}

	// A fresh service sees the same data.
	reloaded := newService(t, st)
	if got := months(reloaded.Entries()); got != "2025-01 2025-02 2025-03" {
		t.Errorf("reloaded entries = %s", got)
	}
	if !reloaded.StartingBalance().Equal(EUR(1000)) {
		t.Errorf("reloaded starting balance = %v", reloaded.StartingBalance())
	}

	mar.Month = date.MustParseMonth("2025-04")
	updated, err := s.UpdateEntry(ctx, mar)
	if err != nil {
		t.Fatal(err)
	}
	if !updated.CreatedAt.Equal(mar.CreatedAt) || !updated.UpdatedAt.After(mar.CreatedAt) {
		t.Errorf("UpdateEntry() timestamps = %v %v", updated.CreatedAt, updated.UpdatedAt)
	}
	if got := months(s.Entries()); got != "2025-01 2025-02 2025-04" {
		t.Errorf("entries after move = %s", got)
	}

	if err := s.DeleteEntry(ctx, mar.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEntry(ctx, mar.ID); !errors.Is(err, tracker.ErrEntryNotFound) {
		t.Errorf("second DeleteEntry() error = %v", err)
	}
	if _, err := st.Get(ctx, store.Performance, mar.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted entry still stored: %v", err)
	}

	if err := s.SetStartingBalance(ctx, tracker.M(1000, "USD")); !errors.Is(err, tracker.ErrInvalid) {
		t.Errorf("currency change with entries error = %v, want ErrInvalid", err)
	}
	if buckets := s.Breakdown(date.Quarterly); len(buckets) != 1 || buckets[0].Key != "2025-Q1" {
		t.Errorf("Breakdown() = %+v", buckets)
	}
}

func TestService_OptimisticUpdate(t *testing.T) {
	ctx := context.Background()
	s := newService(t, broken{store.NewMemory()})

	e, err := s.AddEntry(ctx, entry("2025-01", 10, 0, 0))
	if err != nil {
		t.Fatalf("AddEntry() with a failing store error = %v, want nil", err)
	}
	if _, err := s.Entry(e.ID); err != nil {
		t.Errorf("entry not kept in memory: %v", err)
	}
	if err := s.DeleteEntry(ctx, e.ID); err != nil {
		t.Errorf("DeleteEntry() with a failing store error = %v, want nil", err)
	}
	if len(s.Entries()) != 0 {
		t.Errorf("entry not deleted from memory")
	}
}

func TestService_Investors(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	s := newService(t, st)

	zoe, err := s.AddInvestor(ctx, tracker.Investor{Name: "zoe", StartingBalance: tracker.M(500, "")})
	if err != nil {
		t.Fatal(err)
	}
	ada, err := s.AddInvestor(ctx, tracker.Investor{Name: "Ada", Email: "ada@example.com", StartingBalance: EUR(1000)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddInvestor(ctx, tracker.Investor{Name: ""}); !errors.Is(err, tracker.ErrInvalid) {
		t.Errorf("AddInvestor() without name error = %v", err)
	}
	if zoe.Currency() != DefaultCurrency || zoe.Status != tracker.StatusActive || zoe.JoinedOn.IsZero() {
		t.Errorf("AddInvestor() defaults = %+v", zoe)
	}

	list := s.Investors()
	if len(list) != 2 || list[0].Name != "Ada" || list[1].Name != "zoe" {
		t.Errorf("Investors() not ordered by name: %v", list)
	}

	if _, err := s.AddInvestorEntry(ctx, ada.ID, entry("2025-01", 50, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddInvestorEntry(ctx, "nobody", entry("2025-01", 50, 0, 0)); !errors.Is(err, tracker.ErrInvestorNotFound) {
		t.Errorf("AddInvestorEntry() for unknown investor error = %v", err)
	}
	sum, err := s.InvestorSummary(ada.ID)
	if err != nil || !sum.CurrentBalance.Equal(EUR(1050)) {
		t.Errorf("InvestorSummary() = %v, %v", sum.CurrentBalance, err)
	}

	ada.Phone = "+33 1 23 45 67 89"
	if _, err := s.UpdateInvestor(ctx, ada); err != nil {
		t.Fatal(err)
	}
	ada.StartingBalance = tracker.M(1000, "USD")
	if _, err := s.UpdateInvestor(ctx, ada); !errors.Is(err, tracker.ErrInvalid) {
		t.Errorf("UpdateInvestor() currency change error = %v, want ErrInvalid", err)
	}

	overview := s.Overview()
	if len(overview) != 1 || overview[0].Investors != 2 || !overview[0].CurrentBalance.Equal(EUR(1550)) {
		t.Errorf("Overview() = %+v", overview)
	}

	reloaded := newService(t, st)
	got, err := reloaded.Investor(ada.ID)
	if err != nil || got.Phone != "+33 1 23 45 67 89" {
		t.Errorf("reloaded investor = %+v, %v", got, err)
	}
	if entries, _ := reloaded.InvestorEntries(ada.ID); len(entries) != 1 {
		t.Errorf("reloaded investor entries = %v", entries)
	}

	if _, err := s.SendMessage(ctx, ada.ID, tracker.RoleAdmin, "hello"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteInvestor(ctx, ada.ID); err != nil {
		t.Fatal(err)
	}
	for _, coll := range []string{store.InvestorPerformance(ada.ID), store.Messages(ada.ID)} {
		if docs, _ := st.List(ctx, coll); len(docs) != 0 {
			t.Errorf("%s not cascaded: %d documents left", coll, len(docs))
		}
	}
	if _, err := s.Investor(ada.ID); !errors.Is(err, tracker.ErrInvestorNotFound) {
		t.Errorf("Investor() after delete error = %v", err)
	}
	if len(s.Conversations()) != 0 {
		t.Errorf("conversation not deleted")
	}
}

func TestService_Chat(t *testing.T) {
	ctx := context.Background()
	s := newService(t, store.NewMemory())
	a, _ := s.AddInvestor(ctx, tracker.Investor{Name: "A", StartingBalance: EUR(1)})
	b, _ := s.AddInvestor(ctx, tracker.Investor{Name: "B", StartingBalance: EUR(1)})

	var got []string
	cancel := s.Subscribe(a.ID, func(m tracker.Message) { got = append(got, m.Body) })

	if _, err := s.SendMessage(ctx, a.ID, tracker.RoleInvestor, "question"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SendMessage(ctx, b.ID, tracker.RoleInvestor, "other"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SendMessage(ctx, a.ID, tracker.RoleAdmin, "answer"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SendMessage(ctx, a.ID, tracker.RoleAdmin, "  "); !errors.Is(err, tracker.ErrInvalid) {
		t.Errorf("SendMessage() empty body error = %v", err)
	}
	if _, err := s.SendMessage(ctx, "nobody", tracker.RoleAdmin, "hi"); !errors.Is(err, tracker.ErrInvestorNotFound) {
		t.Errorf("SendMessage() unknown investor error = %v", err)
	}
	cancel()
	if _, err := s.SendMessage(ctx, a.ID, tracker.RoleAdmin, "after cancel"); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "question" || got[1] != "answer" {
		t.Errorf("subscriber received %v", got)
	}

	convs := s.Conversations()
	if len(convs) != 2 || convs[0].InvestorID != a.ID || convs[0].LastMessage != "after cancel" {
		t.Errorf("Conversations() = %+v", convs)
	}
	if n := s.UnreadCount(tracker.RoleAdmin); n != 2 {
		t.Errorf("UnreadCount(admin) = %d, want 2", n)
	}
	if n, err := s.MarkRead(ctx, a.ID, tracker.RoleAdmin); err != nil || n != 1 {
		t.Errorf("MarkRead() = %d, %v, want 1", n, err)
	}
	if n := s.UnreadCount(tracker.RoleAdmin); n != 1 {
		t.Errorf("UnreadCount(admin) after MarkRead = %d, want 1", n)
	}
	if c := s.Conversation(a.ID); c.UnreadByInvestor != 2 {
		t.Errorf("UnreadByInvestor = %d, want 2", c.UnreadByInvestor)
	}
	if msgs := s.Messages(a.ID); len(msgs) != 3 || msgs[0].Body != "question" {
		t.Errorf("Messages() = %v", msgs)
	}
}

func TestService_Bus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st, bus := store.NewMemory(), chat.NewLocalBus()

	first := newService(t, st, WithBus(bus))
	inv, _ := first.AddInvestor(ctx, tracker.Investor{Name: "A", StartingBalance: EUR(1)})
	second := newService(t, st, WithBus(bus))
	if err := first.Listen(ctx); err != nil {
		t.Fatal(err)
	}
	if err := second.Listen(ctx); err != nil {
		t.Fatal(err)
	}

	var received, echoed int
	second.Subscribe("", func(tracker.Message) { received++ })
	first.Subscribe("", func(tracker.Message) { echoed++ })
	if _, err := first.SendMessage(ctx, inv.ID, tracker.RoleAdmin, "hello"); err != nil {
		t.Fatal(err)
	}
	if received != 1 || echoed != 1 {
		t.Errorf("received=%d echoed=%d, want 1 and 1", received, echoed)
	}
	if msgs := second.Messages(inv.ID); len(msgs) != 1 {
		t.Errorf("second service messages = %v", msgs)
	}
}

func TestService_ExportImport(t *testing.T) {
	ctx := context.Background()
	src := newService(t, store.NewMemory())
	if err := src.SetStartingBalance(ctx, EUR(1000)); err != nil {
		t.Fatal(err)
	}
	src.AddEntry(ctx, entry("2025-01", 10, 0, 0))
	inv, _ := src.AddInvestor(ctx, tracker.Investor{Name: "A", StartingBalance: EUR(100)})
	src.AddInvestorEntry(ctx, inv.ID, entry("2025-01", 1, 0, 0))
	src.SendMessage(ctx, inv.ID, tracker.RoleInvestor, "hi")

	st := store.NewMemory()
	dst := newService(t, st)
	if err := dst.Import(ctx, src.Export()); err != nil {
		t.Fatal(err)
	}
	dst = newService(t, st)
	if !dst.Summary().CurrentBalance.Equal(EUR(1010)) {
		t.Errorf("imported summary = %v", dst.Summary().CurrentBalance)
	}
	if sum, err := dst.InvestorSummary(inv.ID); err != nil || !sum.CurrentBalance.Equal(EUR(101)) {
		t.Errorf("imported investor summary = %v, %v", sum.CurrentBalance, err)
	}
	if len(dst.Messages(inv.ID)) != 1 {
		t.Errorf("imported messages = %v", dst.Messages(inv.ID))
	}

	bad := &tracker.Dataset{Entries: []tracker.Entry{{ID: "x"}}}
	if err := dst.Import(ctx, bad); !errors.Is(err, tracker.ErrInvalid) {
		t.Errorf("Import() invalid dataset error = %v", err)
	}
	if len(dst.Entries()) != 1 {
		t.Errorf("invalid import changed the data")
	}
}

func TestService_ImportMerge(t *testing.T) {
	usd := func(v float64) tracker.Money { return tracker.M(v, "USD") }
	eur := func(v float64) *tracker.Money { m := EUR(v); return &m }

	tests := []struct {
		name    string
		dataset func(ada, bob tracker.Investor) *tracker.Dataset
		wantErr error
		balance tracker.Money
		ada     string // currency of Ada after the import
		bob     string
	}{
		{
			name: "no settings keep the starting balance",
			dataset: func(ada, bob tracker.Investor) *tracker.Dataset {
				return &tracker.Dataset{Investors: []tracker.Investor{{ID: "carl", Name: "Carl", StartingBalance: EUR(10)}}}
			},
			balance: EUR(5000), ada: "EUR", bob: "EUR",
		},
		{
			name: "settings replace the starting balance",
			dataset: func(ada, bob tracker.Investor) *tracker.Dataset {
				return &tracker.Dataset{StartingBalance: eur(2000)}
			},
			balance: EUR(2000), ada: "EUR", bob: "EUR",
		},
		{
			name: "currency of an investor with entries cannot change",
			dataset: func(ada, bob tracker.Investor) *tracker.Dataset {
				ada.StartingBalance = usd(500)
				return &tracker.Dataset{StartingBalance: eur(2000), Investors: []tracker.Investor{ada}}
			},
			wantErr: tracker.ErrInvalid,
			balance: EUR(5000), ada: "EUR", bob: "EUR",
		},
		{
			name: "currency of an investor without entries can change",
			dataset: func(ada, bob tracker.Investor) *tracker.Dataset {
				bob.StartingBalance = usd(50)
				return &tracker.Dataset{Investors: []tracker.Investor{bob}}
			},
			balance: EUR(5000), ada: "EUR", bob: "USD",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st := store.NewMemory()
			s := newService(t, st)
			if err := s.SetStartingBalance(ctx, EUR(5000)); err != nil {
				t.Fatal(err)
			}
			ada, err := s.AddInvestor(ctx, tracker.Investor{Name: "Ada", StartingBalance: EUR(500)})
			if err != nil {
				t.Fatal(err)
			}
			if _, err := s.AddInvestorEntry(ctx, ada.ID, entry("2025-01", 5, 0, 0)); err != nil {
				t.Fatal(err)
			}
			bob, err := s.AddInvestor(ctx, tracker.Investor{Name: "Bob", StartingBalance: EUR(50)})
			if err != nil {
				t.Fatal(err)
			}

			err = s.Import(ctx, tt.dataset(ada, bob))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Import() error = %v, want %v", err, tt.wantErr)
			}

			for _, s := range []*Service{s, newService(t, st)} {
				if got := s.StartingBalance(); !got.Equal(tt.balance) {
					t.Errorf("starting balance = %v, want %v", got, tt.balance)
				}
				for id, want := range map[string]string{ada.ID: tt.ada, bob.ID: tt.bob} {
					inv, err := s.Investor(id)
					if err != nil || inv.Currency() != want {
						t.Errorf("investor %s currency = %q, %v, want %q", id, inv.Currency(), err, want)
					}
				}
				if sum, err := s.InvestorSummary(ada.ID); err != nil || !sum.CurrentBalance.Equal(EUR(505)) {
					t.Errorf("Ada summary = %v, %v, want 505 EUR", sum.CurrentBalance, err)
				}
			}
		})
	}
}

// recording is a store that records the order of the settings it receives.
type recording struct {
	*store.Memory
	mu  sync.Mutex
	got []string
}

func (r *recording) Put(ctx context.Context, doc store.Document) error {
	if doc.Collection == store.Settings {
		var st settings
		if err := doc.Decode(&st); err != nil {
			return err
		}
		r.mu.Lock()
		r.got = append(r.got, st.StartingBalance.String())
		r.mu.Unlock()
	}
	return r.Memory.Put(ctx, doc)
}

func TestService_WritesInOrder(t *testing.T) {
	ctx := context.Background()
	st := &recording{Memory: store.NewMemory()}
	s := newService(t, st)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.SetStartingBalance(ctx, EUR(float64(i))); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	// the last write to the store is the value held in memory
	if len(st.got) != 20 {
		t.Fatalf("store received %d settings, want 20", len(st.got))
	}
	if last, want := st.got[len(st.got)-1], s.StartingBalance().String(); last != want {
		t.Errorf("store holds %s, memory holds %s", last, want)
	}
}

func months(entries []tracker.Entry) string {
	var res string
	for i, e := range entries {
		if i > 0 {
			res += " "
		}
		res += e.Month.String()
	}
	return res
}
