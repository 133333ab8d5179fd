package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/beevik/etree"
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
)

const (
	sdfVersion = "1.6"

	wallMaterialURI  = "file://media/materials/scripts/gazebo.material"
	wallMaterialName = "Gazebo/Grey"
	wallAmbient      = "1 1 1 1"
)

// World is an SDF document holding a single static model.
type World struct {
	doc    *etree.Document
	model  *etree.Element
	walls  int
	sealed bool
}

// NewWorld starts a document with an empty model named name placed at the origin.
func NewWorld(name string) *World {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("sdf")
	root.CreateAttr("version", sdfVersion)

	model := root.CreateElement("model")
	model.CreateAttr("name", name)
	addPose(model, "0 0 0 0 -0 0")

	return &World{doc: doc, model: model}
}

// AddWall appends a link for s. It panics if the world is sealed.
func (w *World) AddWall(s WallSegment) {
	if w.sealed {
		panic("img2sdf: AddWall called on a sealed world")
	}

	name := s.Name()
	size := s.Size()

	link := w.model.CreateElement("link")
	link.CreateAttr("name", name)

	collision := link.CreateElement("collision")
	collision.CreateAttr("name", name+"_Collision")
	addBox(collision, size)

	visual := link.CreateElement("visual")
	visual.CreateAttr("name", name+"_Visual")
	addBox(visual, size)

	material := visual.CreateElement("material")
	script := material.CreateElement("script")
	script.CreateElement("uri").SetText(wallMaterialURI)
	script.CreateElement("name").SetText(wallMaterialName)
	material.CreateElement("ambient").SetText(wallAmbient)

	meta := visual.CreateElement("meta")
	meta.CreateElement("layer").SetText("0")

	addPose(link, poseText(s.Position()))

	w.walls++
}

// Seal marks the model static and fixes the layout. Later calls are no-ops.
func (w *World) Seal() {
	if w.sealed {
		return
	}
	w.model.CreateElement("static").SetText("1")
	w.doc.Indent(2)
	w.sealed = true
}

// Walls is the number of links added so far.
func (w *World) Walls() int { return w.walls }

// WriteTo serializes the document.
func (w *World) WriteTo(out io.Writer) (int64, error) {
	return w.doc.WriteTo(out)
}

// WriteFile writes the document to path through a temporary file in the same
// directory, so path is either left untouched or fully written.
func (w *World) WriteFile(path string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return stageErrorf(ErrSerialization, err, "create temporary file for %s", path)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			err = multierr.Append(err, os.Remove(tmpName))
		}
	}()

	if _, err := w.WriteTo(tmp); err != nil {
		return multierr.Append(stageErrorf(ErrSerialization, err, "write %s", tmpName), tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return stageErrorf(ErrSerialization, err, "close %s", tmpName)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return stageErrorf(ErrSerialization, err, "chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return stageErrorf(ErrSerialization, err, "rename %s to %s", tmpName, path)
	}
	return nil
}

func addBox(parent *etree.Element, size r3.Vector) {
	box := parent.CreateElement("geometry").CreateElement("box")
	box.CreateElement("size").SetText(fmt.Sprintf("%s %s %s",
		formatFloat(size.X), formatFloat(size.Y), formatFloat(size.Z)))
}

func addPose(parent *etree.Element, text string) {
	pose := parent.CreateElement("pose")
	pose.CreateAttr("frame", "")
	pose.SetText(text)
}

func poseText(p r3.Vector) string {
	return fmt.Sprintf("%s %s %s 0 -0 0", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
}
