package rpc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

// NodeConf holds the RPC related settings of lynx.conf
type NodeConf struct {
	User     string
	Password string
	Port     string
	Bind     string
	DataDir  string
}

// LoadConf reads lynx.conf. A missing file yields an empty NodeConf.
// Relative datadir values are resolved against the file's directory.
func LoadConf(path string) (NodeConf, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NodeConf{}, nil
	}
	if err != nil {
		return NodeConf{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseConf(data, filepath.Dir(path))
}

// ParseConf parses lynx.conf contents. Only top-level keys are read;
// network sections such as [test] are ignored.
func ParseConf(data []byte, confDir string) (NodeConf, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:             true,
		SkipUnrecognizableLines: true,
		IgnoreInlineComment:     true,
		AllowBooleanKeys:        true,
	}, data)
	if err != nil {
		return NodeConf{}, fmt.Errorf("failed to parse node config: %w", err)
	}

	sec := f.Section(ini.DefaultSection)
	conf := NodeConf{
		User:     sec.Key("rpcuser").String(),
		Password: sec.Key("rpcpassword").String(),
		Port:     sec.Key("rpcport").String(),
		Bind:     sec.Key("rpcbind").String(),
		DataDir:  sec.Key("datadir").String(),
	}
	if conf.Bind == "" {
		conf.Bind = sec.Key("rpchost").String()
	}
	if conf.DataDir != "" && !filepath.IsAbs(conf.DataDir) && confDir != "" {
		conf.DataDir = filepath.Clean(filepath.Join(confDir, conf.DataDir))
	}
	return conf, nil
}
