package bootconfig

import (
	"fmt"
	"os"
	"strings"
)

// CgroupTokens are the kernel parameters a container runtime needs on the
// boot command line.
var CgroupTokens = []string{
	"cgroup_enable=cpuset",
	"cgroup_enable=memory",
	"cgroup_memory=1",
}

// cmdlineIdempotencyKey gates the append: once this token is present the
// command line is considered patched.
const cmdlineIdempotencyKey = "cgroup_memory=1"

// CmdlinePatcher appends fixed tokens to the single-line boot command-line
// file exactly once.
type CmdlinePatcher struct {
	path   string
	tokens []string
}

// NewCmdlinePatcher creates a CmdlinePatcher for the given cmdline.txt path.
func NewCmdlinePatcher(path string) (*CmdlinePatcher, error) {
	if path == "" {
		return nil, fmt.Errorf("cmdline path cannot be empty")
	}
	return &CmdlinePatcher{path: path, tokens: CgroupTokens}, nil
}

// Path returns the patched file's path.
func (p *CmdlinePatcher) Path() string {
	return p.path
}

// Patched reports whether the command line already carries the cgroup
// tokens.
func (p *CmdlinePatcher) Patched() (bool, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", p.path, err)
	}
	return strings.Contains(string(data), cmdlineIdempotencyKey), nil
}

// Patch appends the cgroup tokens to the command line, preserving the
// single-line format. Already-patched files are left untouched.
func (p *CmdlinePatcher) Patch() (changed bool, err error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", p.path, err)
	}
	content := string(data)
	if strings.Contains(content, cmdlineIdempotencyKey) {
		return false, nil
	}

	line := strings.TrimRight(content, "\r\n")
	for _, tok := range p.tokens {
		line = line + " " + tok
	}
	if err := atomicWrite(p.path, []byte(line+"\n")); err != nil {
		return false, err
	}
	return true, nil
}
