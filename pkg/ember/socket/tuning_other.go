//go:build !linux

package socket

func applyPlatformOptions(fd int, cfg *Config) {}

func applyListenerOptions(fd int, cfg *Config) error {
	return nil
}

func setCork(fd int, on bool) error {
	return nil
}
