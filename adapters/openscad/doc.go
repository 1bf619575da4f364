// Package exportopenscad provides the subprocess renderer for go-layerexport.
//
// Renderer shells out to the OpenSCAD executable once per mode:
//
//	openscad -o <output> --export-format <svg|dxf> [args...] <scratch file>
//
// A missing executable is reported as export.KindToolMissing, a run that
// exceeds the timeout as export.KindTimeout, and a nonzero exit as
// export.KindToolExit carrying the trimmed stderr text.
package exportopenscad
