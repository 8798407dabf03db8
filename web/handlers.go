// Package web serves decoded STI sprite sets over HTTP: per-frame PNG
// previews, whole-file animated GIFs, palette swatches and JSON
// metadata with inline thumbnails.
package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/andybons/gogif"
	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/nfnt/resize"
	"github.com/vincent-petithory/dataurl"

	"badc0de.net/pkg/go-sti/store"
)

// Handler serves sprite files found under one directory.
type Handler struct {
	st  *store.Store
	dir string
}

// NewHandler constructs a web handler serving STI files from dir
// through the passed store.
func NewHandler(st *store.Store, dir string) *Handler {
	return &Handler{st: st, dir: dir}
}

// filePath maps the name route variable onto a file inside the served
// directory. Base strips any path traversal.
func (h *Handler) filePath(r *http.Request) string {
	return filepath.Join(h.dir, filepath.Base(mux.Vars(r)["name"]))
}

func (h *Handler) etag(path, kind string, idx, zoom int) string {
	generation := 1 // bump if the way we generate it changes
	var mod int64
	if s, err := os.Stat(path); err == nil {
		mod = s.ModTime().Unix()
	}
	return fmt.Sprintf(`W/"sti:%d:%s:%s:%d:%d:%d"`, generation, kind, filepath.Base(path), mod, idx, zoom)
}

func writeCacheHeaders(w http.ResponseWriter, etag string) {
	w.Header().Set("Cache-Control", "public; max-age=3600")
	w.Header().Set("ETag", etag)
}

func (h *Handler) frameHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	idx, err := strconv.Atoi(vars["idx"])
	if err != nil {
		http.Error(w, "idx not a number", http.StatusBadRequest)
		return
	}

	zoom := 1
	if z := r.URL.Query().Get("zoom"); z != "" {
		zoom, _ = strconv.Atoi(z)
		// ignore invalid zoom
		if zoom < 1 || zoom > 16 {
			zoom = 1
		}
	}

	path := h.filePath(r)
	etag := h.etag(path, "frame", idx, zoom)
	if r.Header.Get("If-None-Match") == etag {
		writeCacheHeaders(w, etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	f, err := h.st.Decode(r.Context(), path)
	if err != nil {
		http.Error(w, "failed to decode sti", http.StatusNotFound)
		glog.Errorf("error decoding %q: %v", path, err)
		return
	}
	img, err := f.Frame(idx)
	if err != nil {
		http.Error(w, "no such frame", http.StatusNotFound)
		return
	}
	if zoom > 1 {
		b := img.Bounds()
		img = resize.Resize(uint(b.Dx()*zoom), uint(b.Dy()*zoom), img, resize.NearestNeighbor)
	}

	w.Header().Set("Content-Type", "image/png")
	writeCacheHeaders(w, etag)
	w.WriteHeader(http.StatusOK)
	png.Encode(w, img)
}

func (h *Handler) gifHandler(w http.ResponseWriter, r *http.Request) {
	path := h.filePath(r)
	etag := h.etag(path, "gif", 0, 0)
	if r.Header.Get("If-None-Match") == etag {
		writeCacheHeaders(w, etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	f, err := h.st.Decode(r.Context(), path)
	if err != nil {
		http.Error(w, "failed to decode sti", http.StatusNotFound)
		glog.Errorf("error decoding %q: %v", path, err)
		return
	}

	g := gif.GIF{}
	quantizer := gogif.MedianCutQuantizer{NumColor: 255} // Up to 255 colors plus 1 space for transparency.
	for i := range f.Images {
		img, err := f.Frame(i)
		if err != nil {
			http.Error(w, "bad image", http.StatusInternalServerError)
			return
		}

		pal := image.NewPaletted(img.Bounds(), nil)
		quantizer.Quantize(pal, img.Bounds(), img, image.Point{})

		// Re-draw over a palette that leads with transparency so empty
		// pixels default to it.
		palTransparent := image.NewPaletted(img.Bounds(), append(color.Palette([]color.Color{color.Transparent}), pal.Palette...))
		draw.Draw(palTransparent, img.Bounds(), img, image.Point{}, draw.Over)

		g.Image = append(g.Image, palTransparent)
		g.Delay = append(g.Delay, 10)
		g.Disposal = append(g.Disposal, gif.DisposalBackground)
		g.BackgroundIndex = 0
	}

	w.Header().Set("Content-Type", "image/gif")
	writeCacheHeaders(w, etag)
	w.WriteHeader(http.StatusOK)
	gif.EncodeAll(w, &g)
}

func (h *Handler) paletteHandler(w http.ResponseWriter, r *http.Request) {
	path := h.filePath(r)

	f, err := h.st.Decode(r.Context(), path)
	if err != nil {
		http.Error(w, "failed to decode sti", http.StatusNotFound)
		glog.Errorf("error decoding %q: %v", path, err)
		return
	}
	if !f.Is8Bit() {
		http.Error(w, "16-bit files carry no palette", http.StatusNotFound)
		return
	}

	// 16x16 grid of 8x8 swatches.
	const cell = 8
	img := image.NewRGBA(image.Rect(0, 0, 16*cell, 16*cell))
	for i, c := range f.Palette {
		cellRect := image.Rect((i%16)*cell, (i/16)*cell, (i%16+1)*cell, (i/16+1)*cell)
		draw.Draw(img, cellRect, image.NewUniform(color.RGBA{c[0], c[1], c[2], 0xFF}), image.Point{}, draw.Src)
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	png.Encode(w, img)
}

type frameInfo struct {
	Index   int    `json:"index"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	OffsetX int    `json:"offset_x"`
	OffsetY int    `json:"offset_y"`
	Thumb   string `json:"thumb,omitempty"` // data URL with a PNG thumbnail
}

type fileInfo struct {
	Name       string      `json:"name"`
	Width      uint16      `json:"width"`
	Height     uint16      `json:"height"`
	NumImages  int         `json:"num_images"`
	Is8Bit     bool        `json:"is_8bit"`
	Is16Bit    bool        `json:"is_16bit"`
	Animated   bool        `json:"animated"`
	Compressed bool        `json:"compressed"`
	FileSize   int64       `json:"file_size"`
	Frames     []frameInfo `json:"frames"`
}

func (h *Handler) infoHandler(w http.ResponseWriter, r *http.Request) {
	path := h.filePath(r)

	stat, err := h.st.Stat(r.Context(), path)
	if err != nil {
		http.Error(w, "failed to decode sti", http.StatusNotFound)
		glog.Errorf("error statting %q: %v", path, err)
		return
	}
	f, err := h.st.Decode(r.Context(), path)
	if err != nil {
		http.Error(w, "failed to decode sti", http.StatusNotFound)
		return
	}

	out := fileInfo{
		Name:       filepath.Base(path),
		Width:      stat.Width,
		Height:     stat.Height,
		NumImages:  stat.NumImages,
		Is8Bit:     stat.Is8Bit,
		Is16Bit:    stat.Is16Bit,
		Animated:   stat.Animated,
		Compressed: stat.Compressed,
		FileSize:   stat.FileSize,
	}
	withThumbs := r.URL.Query().Get("thumbs") != ""
	for i := range f.Images {
		fi := frameInfo{
			Index:  i,
			Width:  int(f.Images[i].Width),
			Height: int(f.Images[i].Height),
		}
		if sub := f.Images[i].Header; sub != nil {
			fi.OffsetX = int(sub.OffsetX)
			fi.OffsetY = int(sub.OffsetY)
		}
		if withThumbs {
			if img, err := f.Frame(i); err == nil {
				thumb := resize.Thumbnail(32, 32, img, resize.NearestNeighbor)
				var buf bytes.Buffer
				if err := png.Encode(&buf, thumb); err == nil {
					fi.Thumb = dataurl.New(buf.Bytes(), "image/png").String()
				}
			}
		}
		out.Frames = append(out.Frames, fi)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(&out)
}

// RegisterRoutes attaches the handler's routes to the passed router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/sti/{name}/frame/{idx:[0-9]+}.png", h.frameHandler)
	r.HandleFunc("/sti/{name}/anim.gif", h.gifHandler)
	r.HandleFunc("/sti/{name}/palette.png", h.paletteHandler)
	r.HandleFunc("/sti/{name}/info", h.infoHandler)
	r.HandleFunc("/sti/{name}", h.infoHandler)
}
