package storage

import "github.com/cozis/cozyfs/internal/storage/pager"

// MaxPathComponents bounds the component array a caller may parse a
// path into (§4.6); the core itself uses this value.
const MaxPathComponents = pager.MaxPathComponents

// splitPath parses an absolute path into its components (§4.6). A
// leading '/' is consumed; a single trailing '/' is ignored; other empty
// components are rejected; "." is skipped; ".." pops the previous
// component, failing with EINVAL at root depth. The result is bounded by MaxPathComponents, failing with
// ENOMEM if exceeded.
func splitPath(path []byte) ([][]byte, Errno) {
	if len(path) == 0 || path[0] != '/' {
		return nil, EINVAL
	}
	rest := path[1:]
	if len(rest) == 0 {
		return nil, OK // path was exactly "/": root itself, zero components
	}

	var out [][]byte
	start := 0
	flush := func(end int) Errno {
		comp := rest[start:end]
		switch {
		case len(comp) == 0:
			return EINVAL
		case len(comp) == 1 && comp[0] == '.':
			// skip
		case len(comp) == 2 && comp[0] == '.' && comp[1] == '.':
			if len(out) == 0 {
				return EINVAL
			}
			out = out[:len(out)-1]
		default:
			if len(out) >= MaxPathComponents {
				return ENOMEM
			}
			out = append(out, comp)
		}
		return OK
	}

	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			if err := flush(i); err != OK {
				return nil, err
			}
			start = i + 1
		}
	}
	if start < len(rest) { // a single trailing '/' adds no component
		if err := flush(len(rest)); err != OK {
			return nil, err
		}
	}
	return out, OK
}

// resolvePath walks path from the filesystem root, descending through
// one directory per component, and returns the resolved entity
// (§4.3, §4.6). Fails with ENOENT on a missing component, and also
// ENOENT if an interior component names a file.
func (cn *Conn) resolvePath(path []byte) (entityRef, Errno) {
	comps, err := splitPath(path)
	if err != OK {
		return entityRef{}, err
	}

	ref := entityRef{dpageOff: pager.NullOffset}
	for _, comp := range comps {
		e, err := cn.readEntity(ref)
		if err != OK {
			return entityRef{}, err
		}
		if !e.IsDir() {
			return entityRef{}, ENOENT
		}
		off, err := cn.lookup(e.Head, comp)
		if err != OK {
			return entityRef{}, err
		}
		if off == pager.NullOffset {
			return entityRef{}, ENOENT
		}
		ref = cn.refFromOffset(off)
	}
	return ref, OK
}

// resolveParent walks all but the last component of path, returning the
// containing directory's DPage head plus the final component's name
// (§4.3, §4.6). Used by operations that create or remove a name rather
// than resolve it (mkdir, link, unlink, rmdir).
func (cn *Conn) resolveParent(path []byte) (dirHead uint32, name []byte, errno Errno) {
	comps, err := splitPath(path)
	if err != OK {
		return 0, nil, err
	}
	if len(comps) == 0 {
		return 0, nil, EINVAL // the root itself has no containing directory
	}

	ref := entityRef{dpageOff: pager.NullOffset}
	for _, comp := range comps[:len(comps)-1] {
		e, err := cn.readEntity(ref)
		if err != OK {
			return 0, nil, err
		}
		if !e.IsDir() {
			return 0, nil, ENOENT
		}
		off, err := cn.lookup(e.Head, comp)
		if err != OK {
			return 0, nil, err
		}
		if off == pager.NullOffset {
			return 0, nil, ENOENT
		}
		ref = cn.refFromOffset(off)
	}

	e, err := cn.readEntity(ref)
	if err != OK {
		return 0, nil, err
	}
	if !e.IsDir() {
		return 0, nil, ENOENT
	}
	if e.Head == pager.NullOffset {
		// An empty directory has no DPage yet; give it one so the caller
		// has a page list to search and insert into.
		off, _, aerr := cn.allocPage(pager.PageTypeDirectory)
		if aerr != OK {
			return 0, nil, aerr
		}
		e.Head, e.Tail = off, off
		if werr := cn.writeEntity(ref, e); werr != OK {
			return 0, nil, werr
		}
	}
	return e.Head, comps[len(comps)-1], OK
}
