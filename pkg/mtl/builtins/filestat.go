package builtins

import (
	"os"
	"os/user"
	"strconv"
	"syscall"

	"github.com/metaplate/metaplate/pkg/mtl/provider"
)

// FileStatProvider resolves the filesystem ownership and size fields:
// {size}, {uid}, {gid}, {user}, {group}.
type FileStatProvider struct{}

func (FileStatProvider) Namespaces() []string {
	return []string{"size", "uid", "gid", "user", "group"}
}

func (FileStatProvider) Resolve(req *provider.Request) ([]string, bool, error) {
	info, err := os.Stat(req.File.Path())
	if err != nil {
		return nil, false, err
	}

	if req.Namespace == "size" {
		return []string{strconv.FormatInt(info.Size(), 10)}, true, nil
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		// Ownership is unavailable on this platform.
		return nil, true, nil
	}

	switch req.Namespace {
	case "uid":
		return []string{strconv.FormatUint(uint64(stat.Uid), 10)}, true, nil
	case "gid":
		return []string{strconv.FormatUint(uint64(stat.Gid), 10)}, true, nil
	case "user":
		u, err := user.LookupId(strconv.FormatUint(uint64(stat.Uid), 10))
		if err != nil {
			return nil, false, err
		}
		return []string{u.Username}, true, nil
	case "group":
		g, err := user.LookupGroupId(strconv.FormatUint(uint64(stat.Gid), 10))
		if err != nil {
			return nil, false, err
		}
		return []string{g.Name}, true, nil
	}
	return nil, false, nil
}
