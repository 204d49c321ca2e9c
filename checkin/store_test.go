package checkin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) (*JSONProfileStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "perfis")
	s, err := NewJSONProfileStore(dir, nil)
	if err != nil {
		t.Fatalf("NewJSONProfileStore: %v", err)
	}
	return s, dir
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Ana":            "ana",
		"ANA":            "ana",
		"aná":            "ana",
		"  João Gonçalo": "joaogoncalo",
		"Zoë_B-2":        "zoe_b-2",
		"../../etc":      "etc",
		"":               AnonymousKey,
		"!!!":            AnonymousKey,
	}
	for raw, want := range cases {
		if got := NormalizeName(raw); got != want {
			t.Fatalf("NormalizeName(%q)=%q, want %q", raw, got, want)
		}
	}
}

func TestJSONProfileStore_LoadMissingCreatesAndPersists(t *testing.T) {
	t.Parallel()

	s, dir := newTestStore(t)

	ok, err := s.Exists("Micael")
	if err != nil || ok {
		t.Fatalf("Exists before load = %v, %v", ok, err)
	}

	p, err := s.Load("Micael")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Name != "Micael" || p.TotalSessions != 0 {
		t.Fatalf("profile=%+v", p)
	}
	if _, err := os.Stat(filepath.Join(dir, "micael.json")); err != nil {
		t.Fatalf("expected profile file: %v", err)
	}
	ok, err = s.Exists("MICAEL")
	if err != nil || !ok {
		t.Fatalf("Exists after load = %v, %v", ok, err)
	}
}

func TestJSONProfileStore_RoundTrip(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	p := NewUserProfile("Micael")
	ComputeIntensity(p, "ansioso")
	p.RegisterSession("ansioso", 4)
	ComputeIntensity(p, "ansioso")
	p.RegisterSession("ansioso", 2)
	ComputeIntensity(p, "calmo")
	p.RegisterSession("calmo", 3)

	if err := s.Save(p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load("Micael")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.Name != "Micael" || got.TotalSessions != 3 {
		t.Fatalf("Name=%q TotalSessions=%d", got.Name, got.TotalSessions)
	}
	if got.CountByState["ansioso"] != 2 || got.CountByState["calmo"] != 1 {
		t.Fatalf("CountByState=%v", got.CountByState)
	}
	if m := got.MeanIntensity("ansioso"); !approx(m, 3.0) {
		t.Fatalf("MeanIntensity=%v, want 3", m)
	}
	if got.LastState != "calmo" || got.StateStreak != 1 {
		t.Fatalf("LastState=%q StateStreak=%d", got.LastState, got.StateStreak)
	}
	for state, e := range p.Ledger {
		if !approx(got.Ledger[state].Value, e.Value) {
			t.Fatalf("Ledger[%s]=%v, want %v", state, got.Ledger[state].Value, e.Value)
		}
	}
}

func TestJSONProfileStore_NameVariantsConvergeOnOneFile(t *testing.T) {
	t.Parallel()

	s, dir := newTestStore(t)

	p, err := s.Load("Ana")
	if err != nil {
		t.Fatalf("Load Ana: %v", err)
	}
	p.RegisterSession("triste", 3)
	if err := s.Save(p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	want := 1
	for _, variant := range []string{"ANA", "aná", " ana "} {
		got, err := s.Load(variant)
		if err != nil {
			t.Fatalf("Load %q: %v", variant, err)
		}
		if got.TotalSessions != want {
			t.Fatalf("Load %q TotalSessions=%d, want %d", variant, got.TotalSessions, want)
		}
		got.Name = variant
		got.RegisterSession("triste", 3)
		if err := s.Save(got); err != nil {
			t.Fatalf("Save %q: %v", variant, err)
		}
		want++
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "ana.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("files=%v, want [ana.json]", names)
	}
}

func TestJSONProfileStore_TolerantDecodeAndLegacyBackup(t *testing.T) {
	t.Parallel()

	s, dir := newTestStore(t)
	legacy := `{
  "nome": "Rui",
  "total_sessoes": 2,
  "contagem_estados": {"cansado": 2},
  "soma_intensidade": {"cansado": 7, "orfao": 9},
  "tema_preferido": "escuro"
}`
	path := filepath.Join(dir, "rui.json")
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write legacy: %v", err)
	}

	p, err := s.Load("Rui")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.TotalSessions != 2 || p.CountByState["cansado"] != 2 {
		t.Fatalf("profile=%+v", p)
	}
	if !approx(p.MeanIntensity("cansado"), 3.5) {
		t.Fatalf("MeanIntensity=%v", p.MeanIntensity("cansado"))
	}
	if _, ok := p.SumIntensityByState["orfao"]; ok {
		t.Fatalf("orphan sum key was not dropped")
	}
	if p.Ledger == nil || p.LastState != "" || p.StateStreak != 0 {
		t.Fatalf("ledger defaults not applied: %+v", p)
	}

	b, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("expected legacy backup: %v", err)
	}
	if string(b) != legacy {
		t.Fatalf("backup content changed")
	}

	// Once saved in the current shape no further backup is taken.
	if err := s.Save(p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.Remove(path + ".bak"); err != nil {
		t.Fatalf("remove backup: %v", err)
	}
	if _, err := s.Load("Rui"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, err := os.Stat(path + ".bak"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("unexpected second backup, stat err=%v", err)
	}
}

func TestJSONProfileStore_CorruptFileIsStorageError(t *testing.T) {
	t.Parallel()

	s, dir := newTestStore(t)
	if err := os.WriteFile(filepath.Join(dir, "ana.json"), []byte(`{"nome": `), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := s.Load("Ana")
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "decode" {
		t.Fatalf("err=%v, want decode StorageError", err)
	}
}

func TestJSONProfileStore_EmptyNameUsesPlaceholder(t *testing.T) {
	t.Parallel()

	s, dir := newTestStore(t)
	p, err := s.Load("   ")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Name != "Utilizador" {
		t.Fatalf("Name=%q", p.Name)
	}
	if _, err := os.Stat(filepath.Join(dir, AnonymousKey+".json")); err != nil {
		t.Fatalf("expected %s.json: %v", AnonymousKey, err)
	}
}

func TestJSONProfileStore_LastStateWithoutStreakRepeatsGently(t *testing.T) {
	t.Parallel()

	s, dir := newTestStore(t)
	doc := `{"nome": "Ana", "intensidades": {"ansioso": {"valor": 3.0}}, "ultimo_estado": "ansioso"}`
	if err := os.WriteFile(filepath.Join(dir, "ana.json"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	p, err := s.Load("Ana")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.LastState != "ansioso" || p.StateStreak != 0 {
		t.Fatalf("LastState=%q StateStreak=%d", p.LastState, p.StateStreak)
	}

	ComputeIntensity(p, "ansioso")
	if v := p.Ledger["ansioso"].Value; !approx(v, 3.15) {
		t.Fatalf("value=%v, want 3.15", v)
	}
}
