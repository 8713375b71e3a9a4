// Package writer implements the writer (C9): streaming a fully assigned
// layout.Plan out to an io.Writer in strictly ascending block order, the
// only pass over the volume's content that actually touches the source
// image or a caller's file handles.
package writer

import (
	"bufio"
	"io"

	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/isoerr"
	"github.com/go-optical/isokit/layout"
	"github.com/go-optical/isokit/node"
	"github.com/go-optical/isokit/option"
)

func blocksFor(byteLen int64) uint32 {
	return uint32((byteLen + consts.BlockSize - 1) / consts.BlockSize)
}

// Write streams plan to w, zero-filling every gap between structures.
// a must not be dirty (layout.Build clears this on success; any mutation
// since then requires a fresh Build before writing again).
func Write(w io.Writer, a *node.Arena, plan *layout.Plan, cfg *option.Config) error {
	if a.Dirty() {
		return isoerr.InvalidInputf("writer.Write", "arena has unreconciled changes; run layout.Build again before writing")
	}

	bw := bufio.NewWriterSize(w, consts.BlockSize*64)
	var written uint32
	zero := make([]byte, consts.BlockSize)

	writeBytes := func(b []byte) error {
		if len(b) == 0 {
			return nil
		}
		if len(b)%consts.BlockSize != 0 {
			return isoerr.Internalf("writer.Write", "attempted to write %d bytes, not a multiple of the block size", len(b))
		}
		if _, err := bw.Write(b); err != nil {
			return err
		}
		written += uint32(len(b)) / consts.BlockSize
		return nil
	}
	padTo := func(target uint32) error {
		if target < written {
			return isoerr.Internalf("writer.Write", "layout moved backwards: at block %d, target %d", written, target)
		}
		for written < target {
			if _, err := bw.Write(zero); err != nil {
				return err
			}
			written++
		}
		return nil
	}

	if len(plan.HybridMBR) > 0 {
		if _, err := bw.Write(plan.HybridMBR); err != nil {
			return err
		}
		if _, err := bw.Write(make([]byte, consts.BlockSize-len(plan.HybridMBR))); err != nil {
			return err
		}
		written++
		if err := padTo(consts.SystemAreaBlocks); err != nil {
			return err
		}
	} else if err := padTo(consts.SystemAreaBlocks); err != nil {
		return err
	}
	if err := writeBytes(plan.Primary[:]); err != nil {
		return err
	}
	if plan.Joliet != nil {
		if err := writeBytes(plan.Joliet[:]); err != nil {
			return err
		}
	}
	if plan.BootRecord != nil {
		if err := writeBytes(plan.BootRecord[:]); err != nil {
			return err
		}
	}
	if err := padTo(plan.SetTermBlock); err != nil {
		return err
	}
	if err := writeBytes(plan.SetTerminator[:]); err != nil {
		return err
	}

	if err := padTo(plan.ISOPathTableLBlock); err != nil {
		return err
	}
	if err := writeBytes(plan.ISOPathTableL); err != nil {
		return err
	}
	if err := padTo(plan.ISOPathTableMBlock); err != nil {
		return err
	}
	if err := writeBytes(plan.ISOPathTableM); err != nil {
		return err
	}

	if cfg.Joliet {
		if err := padTo(plan.JolietPathTableLBlock); err != nil {
			return err
		}
		if err := writeBytes(plan.JolietPathTableL); err != nil {
			return err
		}
		if err := padTo(plan.JolietPathTableMBlock); err != nil {
			return err
		}
		if err := writeBytes(plan.JolietPathTableM); err != nil {
			return err
		}
	}

	if plan.BootCatalogBytes != nil {
		if err := padTo(plan.BootCatalogExtent); err != nil {
			return err
		}
		if err := writeBytes(plan.BootCatalogBytes); err != nil {
			return err
		}
	}

	for _, id := range plan.ISODirs {
		if err := padTo(plan.ISODirectoryExtent[id]); err != nil {
			return err
		}
		if err := writeBytes(plan.ISODirectoryContent[id]); err != nil {
			return err
		}
	}
	for _, id := range plan.JolietDirs {
		if err := padTo(plan.JolietDirectoryExtent[id]); err != nil {
			return err
		}
		if err := writeBytes(plan.JolietDirectoryContent[id]); err != nil {
			return err
		}
	}

	fileCount := len(plan.PayloadOrder)
	for i, pid := range plan.PayloadOrder {
		pl := a.Payload(pid)
		if err := padTo(plan.PayloadExtent[pid]); err != nil {
			return err
		}
		if err := copyPayload(bw, pl, cfg); err != nil {
			return err
		}
		written += blocksFor(pl.Size)
		if cfg.Progress != nil {
			cfg.Progress("", pl.Size, pl.Size, i+1, fileCount)
		}
	}

	if plan.UDF != nil {
		u := plan.UDF
		if err := padTo(consts.AnchorBlock); err != nil {
			return err
		}
		if err := writeBytes(u.AVDPBytes); err != nil {
			return err
		}
		for _, id := range u.Order {
			if err := writeBytes(u.FileEntryBytes[id]); err != nil {
				return err
			}
		}
		for _, id := range u.Order {
			if b, ok := u.DirContentBytes[id]; ok {
				if err := writeBytes(b); err != nil {
					return err
				}
			}
		}
		if err := writeBytes(u.FileSetBytes); err != nil {
			return err
		}
		if err := writeBytes(u.MainVDSBytes); err != nil {
			return err
		}
	}

	if err := padTo(plan.TotalBlocks); err != nil {
		return err
	}
	return bw.Flush()
}

// PatchFile overwrites a file's on-disk payload in place: the patch-only
// mode spec.md §4.9 requires for modify_file_in_place, rewriting just the
// affected block range of an already-written image rather than
// re-streaming the whole volume. newSize must already have been checked
// by the caller to fit within the file's existing extent-aligned
// allocation; content is read for exactly newSize bytes and the final
// partial block is zero-padded so stale bytes never leak past the new
// length.
func PatchFile(f io.WriterAt, extent uint32, content io.Reader, newSize int64) error {
	off := int64(extent) * consts.BlockSize
	buf := make([]byte, consts.BlockSize)
	var done int64
	for done < newSize {
		want := int64(len(buf))
		if remaining := newSize - done; remaining < want {
			want = remaining
		}
		n, err := io.ReadFull(content, buf[:want])
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return err
		}
		if _, err := f.WriteAt(buf[:n], off+done); err != nil {
			return err
		}
		done += int64(n)
		if int64(n) < want {
			break
		}
	}
	if rem := newSize % consts.BlockSize; rem != 0 {
		pad := make([]byte, consts.BlockSize-rem)
		if _, err := f.WriteAt(pad, off+newSize); err != nil {
			return err
		}
	}
	return nil
}

// copyPayload streams pl's content (from the parsed source image or the
// payload's own reader) and zero-pads out to the next block boundary.
func copyPayload(w io.Writer, pl *node.Payload, cfg *option.Config) error {
	var src io.ReaderAt
	var off int64
	if pl.SourceIsImage {
		if cfg.Source == nil {
			return isoerr.Internalf("writer.copyPayload", "payload references the source image but no source was opened")
		}
		src = cfg.Source
		off = pl.ImageOffset
	} else {
		if pl.Reader == nil {
			return isoerr.Internalf("writer.copyPayload", "payload has neither an image offset nor a reader")
		}
		src = pl.Reader
	}

	buf := make([]byte, consts.BlockSize)
	remaining := pl.Size
	for remaining > 0 {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		if _, err := src.ReadAt(buf[:n], off); err != nil && err != io.EOF {
			return err
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return err
		}
		off += n
		remaining -= n
	}

	if rem := pl.Size % consts.BlockSize; rem != 0 {
		if _, err := w.Write(make([]byte, consts.BlockSize-rem)); err != nil {
			return err
		}
	}
	return nil
}
