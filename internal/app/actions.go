package app

import (
	"context"
	"fmt"

	"github.com/roach88/propmap/internal/executor"
	"github.com/roach88/propmap/internal/registrar"
	"github.com/roach88/propmap/internal/store"
)

// Status payloads published by project tasks.
const (
	StatusDuplicate   = "duplicate proposition: nothing added"
	StatusNotesSaved  = "notes saved"
	StatusReset       = "workspace reset"
	StatusEmptyExport = "empty diagram: nothing to export"
)

// SubmitProposition registers a proposition and redraws the graph. A
// duplicate publishes StatusDuplicate instead.
func (s *Session) SubmitProposition(in registrar.Input) (string, error) {
	return s.submit(executor.ChannelGraph, "submit proposition", func(ctx context.Context, pub executor.Publisher) error {
		res, err := s.registrar.Ingest(ctx, s.state, in)
		if err != nil {
			return err
		}
		if res.Outcome == registrar.OutcomeDuplicate {
			pub.Publish(executor.KindStatus, executor.AreaGraph, StatusDuplicate)
			return nil
		}
		return s.render(ctx, pub, executor.AreaGraph)
	})
}

// DeleteLast removes the most recent proposition and redraws the graph.
func (s *Session) DeleteLast() (string, error) {
	return s.submit(executor.ChannelGraph, "delete last proposition", func(ctx context.Context, pub executor.Publisher) error {
		if _, err := s.editor.DeleteLast(ctx); err != nil {
			return err
		}
		return s.render(ctx, pub, executor.AreaGraph)
	})
}

// ExtractText publishes the text of the document at path.
func (s *Session) ExtractText(path string) (string, error) {
	return s.submit(executor.ChannelText, "extract text", func(ctx context.Context, pub executor.Publisher) error {
		text, err := s.extractor.Extract(ctx, path)
		if err != nil {
			return err
		}
		pub.Publish(executor.KindText, executor.AreaText, text)
		return nil
	})
}

// EditElement rewrites style fields of one node or relation.
func (s *Session) EditElement(kind store.Table, id int, fields map[string]string) (string, error) {
	area := executor.AreaNodes
	if kind == store.Relations {
		area = executor.AreaRelations
	}
	return s.submit(executor.ChannelEdit, "edit "+kind.String(), func(ctx context.Context, pub executor.Publisher) error {
		if err := s.editor.SetElementAttributes(ctx, kind, id, fields); err != nil {
			return err
		}
		return s.render(ctx, pub, area)
	})
}

// EditGraph restyles every element and applies graph attributes.
func (s *Session) EditGraph(nodeFields, relationFields, graphFields map[string]string) (string, error) {
	return s.submit(executor.ChannelEdit, "edit graph", func(ctx context.Context, pub executor.Publisher) error {
		if err := s.editor.SetGraphAttributes(ctx, s.state, nodeFields, relationFields, graphFields); err != nil {
			return err
		}
		return s.render(ctx, pub, executor.AreaGraph)
	})
}

// RetargetProposition renames the elements of the proposition at index
// (0-based). An empty entity2 keeps the target.
func (s *Session) RetargetProposition(index int, entity1, relation, entity2 string) (string, error) {
	return s.submit(executor.ChannelEdit, "retarget proposition", func(ctx context.Context, pub executor.Publisher) error {
		if _, err := s.editor.RetargetProposition(ctx, s.state, index, entity1, relation, entity2); err != nil {
			return err
		}
		return s.render(ctx, pub, executor.AreaRelations)
	})
}

// DeleteProposition removes the proposition at index (0-based).
func (s *Session) DeleteProposition(index int) (string, error) {
	return s.submit(executor.ChannelEdit, "delete proposition", func(ctx context.Context, pub executor.Publisher) error {
		if _, err := s.editor.DeleteProposition(ctx, index); err != nil {
			return err
		}
		return s.render(ctx, pub, executor.AreaRelations)
	})
}

// SaveProject saves the workspace as parentDir/name.
func (s *Session) SaveProject(parentDir, name string) (string, error) {
	return s.submit(executor.ChannelProject, "save project", func(ctx context.Context, pub executor.Publisher) error {
		dir, err := s.projects.Save(ctx, s.state, parentDir, name)
		if err != nil {
			return err
		}
		pub.Publish(executor.KindStatus, executor.AreaProject, "project saved: "+dir)
		return nil
	})
}

// LoadProject replaces the workspace with the project in dir and redraws
// the graph.
func (s *Session) LoadProject(dir string) (string, error) {
	return s.submit(executor.ChannelProject, "load project", func(ctx context.Context, pub executor.Publisher) error {
		if err := s.projects.Load(ctx, s.state, dir); err != nil {
			return err
		}
		return s.render(ctx, pub, executor.AreaProject)
	})
}

// Export renders the diagram in format, or in the session's render format
// when format is empty.
func (s *Session) Export(format string) (string, error) {
	if format == "" {
		format = s.format
	}
	return s.submit(executor.ChannelProject, "export diagram", func(ctx context.Context, pub executor.Publisher) error {
		var n int
		if err := s.store.View(ctx, func(tx *store.Tx) error {
			n = tx.Len(store.Propositions)
			return nil
		}); err != nil {
			return err
		}
		if n == 0 {
			pub.Publish(executor.KindStatus, executor.AreaProject, StatusEmptyExport)
			return nil
		}

		out, err := s.diagrammer.Render(ctx, format, s.outputDir)
		if err != nil {
			return err
		}
		pub.Publish(executor.KindStatus, executor.AreaProject, fmt.Sprintf("diagram exported: %s", out))
		return nil
	})
}

// ResetAll empties the workspace and restores the default style.
func (s *Session) ResetAll() (string, error) {
	return s.submit(executor.ChannelProject, "reset workspace", func(ctx context.Context, pub executor.Publisher) error {
		if err := s.projects.ResetAll(ctx, s.state); err != nil {
			return err
		}
		pub.Publish(executor.KindStatus, executor.AreaProject, StatusReset)
		return nil
	})
}

// SaveNotes replaces the workspace notes.
func (s *Session) SaveNotes(text string) (string, error) {
	return s.submit(executor.ChannelProject, "save notes", func(ctx context.Context, pub executor.Publisher) error {
		if err := s.projects.SaveNotes(ctx, text); err != nil {
			return err
		}
		pub.Publish(executor.KindStatus, executor.AreaProject, StatusNotesSaved)
		return nil
	})
}
