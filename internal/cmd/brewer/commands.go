package brewer

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/louisbranch/creature-brewer/internal/services/brewer/blueprint"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/library"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/session"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage"
)

type command func(ctx context.Context, c *cli, args []string) error

var commands = map[string]command{
	"collections":  runCollections,
	"add-document": runAddDocument,
	"list":         runList,
	"set":          runSet,
	"add-action":   runAddAction,
	"validate":     runValidate,
	"search":       runSearch,
	"attach":       runAttach,
	"export":       runExport,
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

func runCollections(ctx context.Context, c *cli, args []string) error {
	if err := c.flags("collections").Parse(args); err != nil {
		return err
	}
	collections, err := c.store.ListCollections(ctx)
	if err != nil {
		return err
	}
	for _, collection := range collections {
		fmt.Fprintf(c.out, "%s\t%s\t%s\n", collection.Key, collection.Kind, collection.Label)
	}
	return nil
}

func runAddDocument(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("add-document")
	key := fs.String("collection", "", "collection key")
	kindText := fs.String("kind", string(storage.KindItem), "collection kind: item, actor or journal")
	name := fs.String("name", "", "document name")
	label := fs.String("label", "", "collection label when it is created")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return errors.New("-name is required")
	}
	kind, err := storage.ParseKind(*kindText)
	if err != nil {
		return err
	}
	if _, err := c.store.Collection(ctx, *key); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if err := c.store.CreateCollection(ctx, storage.Collection{Key: *key, Label: *label, Kind: kind}); err != nil {
			return err
		}
	}

	data, err := readData(c.stdin)
	if err != nil {
		return err
	}
	doc, err := c.store.CreateDocument(ctx, *key, storage.Document{Name: *name, Data: data})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, doc.Ref())
	return nil
}

// readData reads a JSON document from r, or returns nil when r is empty.
func readData(r io.Reader) (json.RawMessage, error) {
	if r == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document data: %w", err)
	}
	raw = []byte(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, errors.New("document data must be JSON")
	}
	return raw, nil
}

func runList(ctx context.Context, c *cli, args []string) error {
	if err := c.flags("list").Parse(args); err != nil {
		return err
	}
	entries, err := c.module.Blueprints(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Fprintf(c.out, "%s\t%s\n", entry.ID, entry.Name)
	}
	return nil
}

func runSet(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("set")
	id := fs.String("id", "", "blueprint id; empty creates a blueprint")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("at least one path=value is required")
	}
	s, err := c.openBlueprint(ctx, *id, "")
	if err != nil {
		return err
	}
	for _, assignment := range fs.Args() {
		path, value, ok := strings.Cut(assignment, "=")
		if !ok {
			return fmt.Errorf("expected path=value, got %q", assignment)
		}
		if err := setValue(s, path, value); err != nil {
			return err
		}
	}
	return c.save(ctx, s)
}

// setValue assigns value as text, falling back to its JSON reading when the
// field rejects text.
func setValue(s *session.Session, path string, value string) error {
	err := s.SetField(path, value)
	if err == nil || !isFieldError(err) {
		return err
	}
	parsed := parseValue(value)
	if _, isText := parsed.(string); isText {
		return err
	}
	return s.SetField(path, parsed)
}

func runAddAction(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("add-action")
	id := fs.String("id", "", "blueprint id")
	name := fs.String("name", "", "action name")
	actionType := fs.String("type", blueprint.ActionTypeTrait, "action type")
	text := fs.String("text", "", "action text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}
	s, err := c.openBlueprint(ctx, *id, "")
	if err != nil {
		return err
	}
	if err := s.AddAction(); err != nil {
		return err
	}
	prefix := "actions." + strconv.Itoa(len(s.Blueprint().Actions)-1) + "."
	for field, value := range map[string]string{"name": *name, "type": *actionType, "text": *text} {
		if err := s.SetField(prefix+field, value); err != nil {
			return err
		}
	}
	return c.save(ctx, s)
}

func runValidate(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("validate")
	id := fs.String("id", "", "blueprint id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}
	s, err := c.openBlueprint(ctx, *id, "")
	if err != nil {
		return err
	}
	for _, message := range s.Messages() {
		fmt.Fprintf(c.out, "%s\t%s\t%s\n", message.Severity, message.SectionID, c.localizer.Localize(message.Key))
	}
	return nil
}

type searchFlags struct {
	text    *string
	sources *string
	filter  *string
}

func addSearchFlags(fs *flag.FlagSet) searchFlags {
	return searchFlags{
		text:    fs.String("text", "", "name substring"),
		sources: fs.String("sources", "", "comma separated collection keys; empty uses the stored selection"),
		filter:  fs.String("filter", "", "filter expression over name, source and kind"),
	}
}

func (f searchFlags) query(ctx context.Context, c *cli) (library.Query, error) {
	sources := splitList(*f.sources)
	if len(sources) == 0 {
		stored, err := c.settings.SourcePacks(ctx)
		if err != nil {
			return library.Query{}, err
		}
		sources = stored
	}
	return library.Query{Text: *f.text, SourceIDs: sources, Filter: *f.filter}, nil
}

func runSearch(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("search")
	search := addSearchFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	q, err := search.query(ctx, c)
	if err != nil {
		return err
	}
	s, err := c.module.OpenCreate(ctx)
	if err != nil {
		return err
	}
	results, err := s.SearchQuery(ctx, q)
	if err != nil {
		return err
	}
	for i, result := range results {
		fmt.Fprintf(c.out, "%d\t%s\t%s\t%s\t%s\n", i, result.Ref, result.Name, result.Source, result.Kind)
	}
	fmt.Fprintf(c.errOut, "%s results\n", c.localizer.Count(len(results)))
	return nil
}

func runAttach(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("attach")
	id := fs.String("id", "", "blueprint id")
	search := addSearchFlags(fs)
	index := fs.Int("index", 0, "result index to attach")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}
	q, err := search.query(ctx, c)
	if err != nil {
		return err
	}
	s, err := c.openBlueprint(ctx, *id, "")
	if err != nil {
		return err
	}
	results, err := s.SearchQuery(ctx, q)
	if err != nil {
		return err
	}
	if *index < 0 || *index >= len(results) {
		return fmt.Errorf("index %d out of range: search returned %d results", *index, len(results))
	}
	before := len(s.Blueprint().Attachments)
	if err := s.ImportLibraryItem(ctx, *index); err != nil {
		return err
	}
	if len(s.Blueprint().Attachments) == before {
		fmt.Fprintln(c.errOut, "nothing attached")
		fmt.Fprintln(c.out, *id)
		return nil
	}
	return c.save(ctx, s)
}

func runExport(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("export")
	id := fs.String("id", "", "blueprint id")
	actorID := fs.String("actor", "", "actor id to update")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}
	s, err := c.openBlueprint(ctx, *id, *actorID)
	if err != nil {
		return err
	}
	exported, err := s.ExportActor(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, exported)
	return nil
}

func (c *cli) openBlueprint(ctx context.Context, id string, actorID string) (*session.Session, error) {
	if id == "" {
		return c.module.OpenCreate(ctx)
	}
	return c.module.OpenEditWithActor(ctx, id, actorID)
}

func (c *cli) save(ctx context.Context, s *session.Session) error {
	id, err := s.Save(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, id)
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
