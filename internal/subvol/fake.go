package subvol

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"sync"
)

// FakeSubvolume is an in-memory Subvolume, used throughout the fanout and
// heal test suites in place of a real backend (mirrors the teacher's
// pattern of testing fop-level logic against a fake storage client instead
// of real disk I/O).
type FakeSubvolume struct {
	mu       sync.Mutex
	name     string
	files    map[string]*fakeFile
	dirs     map[string]bool
	nextIno  uint64
	downErrs map[string]error // op name -> forced error, "" matches all ops
}

type fakeFile struct {
	data   []byte
	mode   fs.FileMode
	ino    uint64
	uid    uint32
	gid    uint32
	xattrs map[string][]byte
}

func NewFakeSubvolume(name string) *FakeSubvolume {
	return &FakeSubvolume{
		name:     name,
		files:    make(map[string]*fakeFile),
		dirs:     map[string]bool{"/": true},
		nextIno:  1,
		downErrs: make(map[string]error),
	}
}

// Fail makes every subsequent call to the named op (or to every op that
// consults it, if name is "") return err, until cleared with Fail(name, nil).
// Only lookup (and Stat, which goes through it), create, mkdir, unlink,
// truncate, read, write and lock consult it; the other methods never fail.
func (s *FakeSubvolume) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.downErrs, op)
		return
	}
	s.downErrs[op] = err
}

func (s *FakeSubvolume) checkFail(op string) error {
	if err, ok := s.downErrs[op]; ok {
		return err
	}
	if err, ok := s.downErrs[""]; ok {
		return err
	}
	return nil
}

func (s *FakeSubvolume) Root() string { return s.name }

func (s *FakeSubvolume) Lookup(_ context.Context, path string) (Iatt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkFail("lookup"); err != nil {
		return Iatt{}, err
	}
	if s.dirs[path] {
		return Iatt{Mode: fs.ModeDir | 0755}, nil
	}
	f, ok := s.files[path]
	if !ok {
		return Iatt{}, fs.ErrNotExist
	}
	return s.iattLocked(f), nil
}

func (s *FakeSubvolume) iattLocked(f *fakeFile) Iatt {
	return Iatt{
		Ino:    f.ino,
		Size:   int64(len(f.data)),
		Blocks: int64(len(f.data)+511) / 512,
		Mode:   f.mode,
		Nlink:  1,
		Uid:    f.uid,
		Gid:    f.gid,
	}
}

func (s *FakeSubvolume) Stat(ctx context.Context, path string) (Iatt, error) {
	return s.Lookup(ctx, path)
}

func (s *FakeSubvolume) Create(_ context.Context, path string, mode fs.FileMode) (Iatt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkFail("create"); err != nil {
		return Iatt{}, err
	}
	if _, ok := s.files[path]; ok {
		return Iatt{}, fs.ErrExist
	}
	s.nextIno++
	f := &fakeFile{mode: mode, ino: s.nextIno, xattrs: make(map[string][]byte)}
	s.files[path] = f
	return s.iattLocked(f), nil
}

func (s *FakeSubvolume) Mkdir(_ context.Context, path string, mode fs.FileMode) (Iatt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkFail("mkdir"); err != nil {
		return Iatt{}, err
	}
	s.dirs[path] = true
	return Iatt{Mode: fs.ModeDir | mode}, nil
}

func (s *FakeSubvolume) Unlink(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkFail("unlink"); err != nil {
		return err
	}
	if _, ok := s.files[path]; !ok {
		return fs.ErrNotExist
	}
	delete(s.files, path)
	return nil
}

func (s *FakeSubvolume) Rmdir(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirs[path] {
		return fs.ErrNotExist
	}
	delete(s.dirs, path)
	return nil
}

func (s *FakeSubvolume) Rename(_ context.Context, oldPath, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[oldPath]
	if !ok {
		return fs.ErrNotExist
	}
	delete(s.files, oldPath)
	s.files[newPath] = f
	return nil
}

func (s *FakeSubvolume) Link(_ context.Context, oldPath, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[oldPath]
	if !ok {
		return fs.ErrNotExist
	}
	s.files[newPath] = f
	return nil
}

func (s *FakeSubvolume) Truncate(_ context.Context, path string, size int64) (Iatt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkFail("truncate"); err != nil {
		return Iatt{}, err
	}
	f, ok := s.files[path]
	if !ok {
		return Iatt{}, fs.ErrNotExist
	}
	if int64(len(f.data)) < size {
		grown := make([]byte, size)
		copy(grown, f.data)
		f.data = grown
	} else {
		f.data = f.data[:size]
	}
	return s.iattLocked(f), nil
}

func (s *FakeSubvolume) ReadAt(_ context.Context, path string, buf []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkFail("read"); err != nil {
		return 0, err
	}
	f, ok := s.files[path]
	if !ok {
		return 0, fs.ErrNotExist
	}
	if off >= int64(len(f.data)) {
		return 0, nil
	}
	n := copy(buf, f.data[off:])
	return n, nil
}

func (s *FakeSubvolume) WriteAt(_ context.Context, path string, data []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkFail("write"); err != nil {
		return 0, err
	}
	f, ok := s.files[path]
	if !ok {
		return 0, fs.ErrNotExist
	}
	end := off + int64(len(data))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	n := copy(f.data[off:end], data)
	return n, nil
}

func (s *FakeSubvolume) Fallocate(_ context.Context, path string, mode FallocateMode, off, length int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	if !ok {
		return fs.ErrNotExist
	}
	end := off + length
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	if mode == FallocatePunchHole || mode == FallocateZeroRange {
		for i := off; i < end && i < int64(len(f.data)); i++ {
			f.data[i] = 0
		}
	}
	return nil
}

func (s *FakeSubvolume) Setattr(_ context.Context, path string, uid, gid int32, mode *fs.FileMode) (Iatt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirs[path] {
		return Iatt{Mode: fs.ModeDir | 0755}, nil
	}
	f, ok := s.files[path]
	if !ok {
		return Iatt{}, fs.ErrNotExist
	}
	if uid >= 0 {
		f.uid = uint32(uid)
	}
	if gid >= 0 {
		f.gid = uint32(gid)
	}
	if mode != nil {
		f.mode = *mode
	}
	return s.iattLocked(f), nil
}

func (s *FakeSubvolume) Fsync(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[path]; !ok {
		return fs.ErrNotExist
	}
	return nil
}

func (s *FakeSubvolume) Getxattr(_ context.Context, path, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	v, ok := f.xattrs[name]
	if !ok {
		return nil, fmt.Errorf("xattr %q: %w", name, fs.ErrNotExist)
	}
	return v, nil
}

func (s *FakeSubvolume) Setxattr(_ context.Context, path, name string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	if !ok {
		return fs.ErrNotExist
	}
	f.xattrs[name] = append([]byte(nil), value...)
	return nil
}

func (s *FakeSubvolume) Listxattr(_ context.Context, path string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	names := make([]string, 0, len(f.xattrs))
	for k := range f.xattrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}

func (s *FakeSubvolume) Readdir(_ context.Context, path string) ([]DirEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := path
	if prefix != "/" {
		prefix += "/"
	} else {
		prefix = "/"
	}
	var entries []DirEntry
	for p, f := range s.files {
		dir := p[:len(p)-len(baseName(p))]
		if dir == prefix {
			entries = append(entries, DirEntry{Name: baseName(p), Ino: f.ino, Mode: f.mode})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}

func (s *FakeSubvolume) Fsyncdir(_ context.Context, path string) error {
	return nil
}

func (s *FakeSubvolume) Lock(_ context.Context, path string, lockType LockType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkFail("lock"); err != nil {
		return err
	}
	if _, ok := s.files[path]; !ok {
		return fs.ErrNotExist
	}
	return nil
}

func (s *FakeSubvolume) StatFS(_ context.Context) (FSStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FSStat{BlocksTotal: 1 << 20, BlocksFree: 1 << 19, InodesTotal: 1 << 16, InodesFree: 1 << 15, BlockSize: 512}, nil
}

func (s *FakeSubvolume) Pathinfo(path string) string {
	return fmt.Sprintf("<FAKE:%s:%s>", s.name, path)
}

// Data returns a copy of the stored bytes for path, for test assertions.
func (s *FakeSubvolume) Data(path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	if !ok {
		return nil
	}
	return append([]byte(nil), f.data...)
}
