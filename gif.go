//
// walk the block structure of a GIF file and collect per-frame metadata
//
// GIF spec
// https://www.w3.org/Graphics/GIF/spec-gif89a.txt
//

package gifplay

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	bst "github.com/mixcode/binarystruct"
)

const (
	// block introducers
	gifIntroImage     = 0x2c // Image descriptor
	gifIntroExtension = 0x21 // Extension block
	gifTrailer        = 0x3b // end of the data stream

	// extension block codes
	gifextGraphicControl = 0xf9 // 0x21 0xf9: Graphic Control Extension block
	gifextComment        = 0xfe // 0x21 0xfe: Comment extension block
	gifextPlainText      = 0x01 // 0x21 0x01: Plain Text block
	gifextApplication    = 0xff // 0x21 0xff: Application extension
)

// disposal methods of the Graphic Control Extension
const (
	DisposalUnspecified = 0
	DisposalNone        = 1
	DisposalBackground  = 2
	DisposalPrevious    = 3
)

// ErrNotGIF is returned when the data does not start with a GIF header.
var ErrNotGIF = errors.New("gifplay: invalid GIF header")

// gifFrameInfo is the metadata of a single image descriptor.
type gifFrameInfo struct {
	Bounds image.Rectangle

	HasControl       bool // a Graphic Control Extension preceded the image
	Delay            int  // in 1/100 sec
	Disposal         int
	TransparentIndex int // -1 if none
}

// gifInfo is the result of scanning a GIF stream.
type gifInfo struct {
	Version       string
	Width, Height int

	Frames []gifFrameInfo

	HasLoop   bool // a NETSCAPE2.0 loop extension is present
	LoopCount int  // 0 means forever

	ICCProfile []byte
}

// graphic control extension body, after the 0x04 size byte
type gifGraphicControl struct {
	Flag             byte
	Delay            int `binary:"uint16"`
	TransparentIndex byte
	Terminator       byte
}

// scanGIF walks a GIF stream and returns the frame metadata without decoding
// any pixel data.
func scanGIF(in io.ReadSeeker) (info *gifInfo, err error) {

	buf := make([]byte, 256)
	getC := func(r io.Reader) (byte, error) { // read a char
		_, e := io.ReadFull(r, buf[:1])
		if e != nil {
			return 0, e
		}
		return buf[0], nil
	}
	// read a sub block
	readBlock := func(r io.Reader) ([]byte, error) {
		sz, err := getC(r)
		if err != nil {
			return nil, err
		}
		if sz == 0 {
			return nil, nil
		}
		b := make([]byte, sz)
		_, err = io.ReadFull(r, b)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	// read all sub-blocks
	readBlocks := func(r io.Reader) ([][]byte, error) {
		var blocks [][]byte
		for {
			b, err := readBlock(r)
			if err != nil {
				return nil, err
			}
			if b == nil {
				return blocks, nil
			}
			blocks = append(blocks, b)
		}
	}
	// skip subblocks
	skipBlocks := func(r io.ReadSeeker) (err error) {
		for {
			var sz byte
			sz, err = getC(r)
			if err != nil {
				return
			}
			if sz == 0 { // end of sub blocks
				return
			}
			_, err = r.Seek(int64(sz), io.SeekCurrent)
			if err != nil {
				return
			}
		}
	}

	// read GIF header
	var gifHeader struct {
		Version          string `binary:"[6]byte"`
		Width, Height    int    `binary:"uint16"`
		Flag             byte
		BGColorIndex     byte
		PixelAspectRatio byte
	}
	_, err = bst.Read(in, bst.LittleEndian, &gifHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotGIF, err)
	}
	if len(gifHeader.Version) < 6 ||
		gifHeader.Version[:3] != "GIF" ||
		gifHeader.Version[3] < '0' || gifHeader.Version[3] > '9' ||
		gifHeader.Version[4] < '0' || gifHeader.Version[4] > '9' ||
		gifHeader.Version[5] < 'a' || gifHeader.Version[5] > 'z' {
		return nil, ErrNotGIF
	}

	info = &gifInfo{
		Version: gifHeader.Version,
		Width:   gifHeader.Width,
		Height:  gifHeader.Height,
	}

	// skip the global color table, a palette of RGB triplets
	if gifHeader.Flag&0x80 != 0 {
		sz := 1 << (1 + gifHeader.Flag&0x7)
		_, err = in.Seek(int64(sz*3), io.SeekCurrent)
		if err != nil {
			return nil, err
		}
	}

	// the pending control block applies to the next image only
	var control *gifGraphicControl

	for {
		var c byte
		c, err = getC(in)
		if err != nil {
			// some encoders drop the trailer
			if errors.Is(err, io.EOF) && len(info.Frames) > 0 {
				return info, nil
			}
			return nil, err
		}
		if c == gifTrailer {
			break
		}

		switch c {
		case gifIntroImage:
			var imgDesc struct {
				Left, Top, Width, Height int `binary:"uint16"`
				Flag                     byte
			}
			_, err = bst.Read(in, bst.LittleEndian, &imgDesc)
			if err != nil {
				return nil, err
			}
			frame := gifFrameInfo{
				Bounds:           image.Rect(imgDesc.Left, imgDesc.Top, imgDesc.Left+imgDesc.Width, imgDesc.Top+imgDesc.Height),
				TransparentIndex: -1,
			}
			if control != nil {
				frame.HasControl = true
				frame.Delay = control.Delay
				frame.Disposal = int(control.Flag>>2) & 0x7
				if control.Flag&0x1 != 0 {
					frame.TransparentIndex = int(control.TransparentIndex)
				}
				control = nil
			}
			info.Frames = append(info.Frames, frame)

			// local color table
			if imgDesc.Flag&0x80 != 0 {
				sz := 1 << (1 + imgDesc.Flag&0x7)
				_, err = in.Seek(int64(sz*3), io.SeekCurrent)
				if err != nil {
					return nil, err
				}
			}

			// LZW minimum code size
			_, err = getC(in)
			if err != nil {
				return nil, err
			}

			// skip LZW-compressed image data blocks
			err = skipBlocks(in)
			if err != nil {
				return nil, err
			}

		case gifIntroExtension:
			c, err = getC(in) // extension block type code
			if err != nil {
				return nil, err
			}
			switch c {
			case gifextGraphicControl:
				var sz byte
				sz, err = getC(in)
				if err != nil {
					return nil, err
				}
				if sz != 4 {
					return nil, fmt.Errorf("graphic control extension size mismatch: %d", sz)
				}
				gce := new(gifGraphicControl)
				_, err = bst.Read(in, bst.LittleEndian, gce)
				if err != nil {
					return nil, err
				}
				if gce.Terminator != 0 {
					return nil, fmt.Errorf("graphic control extension is not terminated")
				}
				control = gce

			case gifextApplication:
				var block []byte
				block, err = readBlock(in)
				if err != nil {
					return nil, err
				}
				if len(block) != 8+3 { // ID + Auth
					return nil, fmt.Errorf("application extension block header size mismatch")
				}
				appID := string(block[:8])   // application identifier string. 8 chars.
				appAuth := string(block[8:]) // application auth code. 3 chars.

				var data [][]byte
				data, err = readBlocks(in)
				if err != nil {
					return nil, err
				}

				switch {
				case (appID == "NETSCAPE" && appAuth == "2.0") || (appID == "ANIMEXTS" && appAuth == "1.0"):
					// sub-block 1: {0x01, loop count (uint16)}
					for _, d := range data {
						if len(d) == 3 && d[0] == 0x01 {
							var loop struct {
								ID    byte
								Count int `binary:"uint16"`
							}
							_, err = bst.Read(bytes.NewReader(d), bst.LittleEndian, &loop)
							if err != nil {
								return nil, err
							}
							info.HasLoop = true
							info.LoopCount = loop.Count
						}
					}
				case appID == "ICCRGBG1" && appAuth == "012":
					info.ICCProfile = bytes.Join(data, nil)
				}

			case gifextComment:
				err = skipBlocks(in)
				if err != nil {
					return nil, err
				}

			case gifextPlainText:
				// a plain text block is a graphic rendering block and takes
				// the pending control block with it
				control = nil
				err = skipBlocks(in)
				if err != nil {
					return nil, err
				}

			default: // unknown extensions
				err = skipBlocks(in)
				if err != nil {
					return nil, err
				}
			}

		default:
			return nil, fmt.Errorf("unknown chunk type %x", c)
		}
	}

	return info, nil
}
