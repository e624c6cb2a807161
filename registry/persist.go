package registry

import (
	"bytes"
	"encoding/binary"
	"io/ioutil"
	"log"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/shoestring/utils"
)

const (
	RecordNameSize = 64
	RecordSize     = RecordNameSize + 16*4
)

// record is one spawned instance: zero padded name and a column-major
// transform, little endian. Files carry no header.
type record struct {
	Name      [RecordNameSize]byte
	Transform [16]float32
}

func encodeRecord(name string, transform mgl32.Mat4) ([]byte, error) {
	var rec record
	nameBuf, err := utils.StringToBytesBuffer(name, RecordNameSize, true)
	if err != nil {
		return nil, err
	}
	copy(rec.Name[:], nameBuf)
	rec.Transform = [16]float32(transform)

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &rec); err != nil {
		return nil, errors.Wrapf(err, "Failed to encode record %q", name)
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (string, mgl32.Mat4, error) {
	var rec record
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &rec); err != nil {
		return "", mgl32.Mat4{}, errors.Wrapf(err, "Failed to decode record")
	}
	return utils.BytesToString(rec.Name[:]), mgl32.Mat4(rec.Transform), nil
}

// Persist writes the current transform of every spawned instance.
// Template bodies are not written.
func (r *Registry) Persist(path string) (int, error) {
	var buf bytes.Buffer
	count := 0
	for _, o := range r.Objects() {
		for _, b := range o.Instances {
			data, err := encodeRecord(o.Name, b.Transform())
			if err != nil {
				return 0, err
			}
			buf.Write(data)
			count++
		}
	}
	if err := ioutil.WriteFile(path, buf.Bytes(), 0666); err != nil {
		return 0, errors.Wrapf(err, "Failed to write instances to %q", path)
	}
	log.Printf("[registry] Wrote %d instances to %q", count, path)
	return count, nil
}

// Restore spawns a fresh body with template mass for every record.
// Records of unknown objects and a trailing partial record are skipped.
func (r *Registry) Restore(w World, path string) (int, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return 0, errors.Wrapf(err, "Failed to read instances from %q", path)
	}
	if rem := len(data) % RecordSize; rem != 0 {
		log.Printf("[registry] %q has %d trailing bytes", path, rem)
	}

	count := 0
	for off := 0; off+RecordSize <= len(data); off += RecordSize {
		name, transform, err := decodeRecord(data[off : off+RecordSize])
		if err != nil {
			return count, err
		}
		obj, ok := r.objects[name]
		if !ok {
			log.Printf("[registry] Skipping instance of unknown object %q", name)
			continue
		}
		if _, err := obj.SpawnWithTemplateMass(w, transform); err != nil {
			return count, err
		}
		count++
	}
	log.Printf("[registry] Loaded %d bodies from %q", count, path)
	return count, nil
}
