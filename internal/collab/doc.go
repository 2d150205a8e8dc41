// Package collab provides the external collaborators of a session: an
// Extractor that turns documents into plain text and a Diagrammer that renders
// the stored graph with Graphviz.
package collab
