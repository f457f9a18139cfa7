// Package boardimg renders a board snapshot to PNG for clients that want a
// static picture of the position instead of drawing it themselves.
package boardimg

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/seegalab/seega-server/internal/seega"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

const (
	cellSize = 72
	margin   = 28
)

var (
	backgroundColor = color.RGBA{245, 240, 230, 255}
	lightCell       = color.RGBA{236, 222, 199, 255}
	darkCell        = color.RGBA{196, 164, 120, 255}
	refugeCell      = color.RGBA{168, 188, 156, 255}
	chainTint       = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	labelColor      = color.NRGBA{R: 60, G: 48, B: 34, A: 255}
)

var (
	pieceCache   = map[string]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(player, size int) (image.Image, error) {
	key := fmt.Sprintf("p%d-%d", player, size)

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	name := fmt.Sprintf("assets/pieces/p%d.svg", player)
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}

// Render draws the full position with coordinate labels and returns PNG
// bytes. The refuge cell gets its own tint, and when a chain capture pins a
// piece that cell is highlighted.
func Render(g *seega.Game) ([]byte, error) {
	if g == nil || g.Board == nil {
		return nil, fmt.Errorf("game has no board")
	}

	boardPx := cellSize * seega.BoardSize
	total := boardPx + margin*2
	origin := image.Point{X: margin, Y: margin}

	img := image.NewRGBA(image.Rect(0, 0, total, total))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawCells(img, origin)
	if err := drawPieces(img, g.Board, origin); err != nil {
		return nil, err
	}
	if cp := g.ChainCapturePiece; cp != nil {
		rect := cellRect(cp.X, cp.Y, origin)
		imagedraw.Draw(img, rect, image.NewUniform(chainTint), image.Point{}, imagedraw.Over)
	}
	drawLabels(img, origin)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func cellRect(x, y int, origin image.Point) image.Rectangle {
	px := origin.X + x*cellSize
	py := origin.Y + y*cellSize
	return image.Rect(px, py, px+cellSize, py+cellSize)
}

func drawCells(dst imagedraw.Image, origin image.Point) {
	for y := 0; y < seega.BoardSize; y++ {
		for x := 0; x < seega.BoardSize; x++ {
			clr := lightCell
			if (x+y)%2 == 1 {
				clr = darkCell
			}
			if x == seega.RefugeX && y == seega.RefugeY {
				clr = refugeCell
			}
			imagedraw.Draw(dst, cellRect(x, y, origin), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, b *seega.Board, origin image.Point) error {
	for y := 0; y < seega.BoardSize; y++ {
		for x := 0; x < seega.BoardSize; x++ {
			player := b.Get(x, y)
			if player == seega.CellEmpty {
				continue
			}
			piece, err := renderPieceImage(player, cellSize)
			if err != nil {
				return err
			}
			imagedraw.Draw(dst, cellRect(x, y, origin), piece, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

// drawLabels writes the zero-based column indexes under the board and the
// row indexes to its left, matching the coordinates the API speaks.
func drawLabels(img *image.RGBA, origin image.Point) {
	drawer := &font.Drawer{
		Dst:  img,
		Face: basicfont.Face7x13,
		Src:  image.NewUniform(labelColor),
	}
	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()
	boardPx := cellSize * seega.BoardSize

	for i := 0; i < seega.BoardSize; i++ {
		label := fmt.Sprintf("%d", i)
		width := drawer.MeasureString(label).Round()

		colCenter := origin.X + i*cellSize + cellSize/2
		drawer.Dot = fixed.P(colCenter-width/2, origin.Y+boardPx+ascent+4)
		drawer.DrawString(label)

		rowCenter := origin.Y + i*cellSize + cellSize/2
		drawer.Dot = fixed.P(origin.X-margin/2-width/2, rowCenter+ascent/2)
		drawer.DrawString(label)
	}
}
