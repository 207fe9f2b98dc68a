package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"vidcompress/logger"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SFTPBackend serves sftp://host/path locations. The location's bucket is the
// host; keys are absolute paths on that host. A connection is opened per call.
type SFTPBackend struct {
	User       string
	Password   string
	PrivateKey string // base64 or raw PEM
	Port       string
	Timeout    time.Duration
}

func NewSFTPBackend(user, password, privateKey, port string) *SFTPBackend {
	if port == "" {
		port = "22"
	}
	return &SFTPBackend{
		User:       user,
		Password:   password,
		PrivateKey: privateKey,
		Port:       port,
		Timeout:    10 * time.Second,
	}
}

func (b *SFTPBackend) clientConfig() (*ssh.ClientConfig, error) {
	if b.User == "" {
		return nil, fmt.Errorf("sftp user not configured")
	}

	var auths []ssh.AuthMethod
	if b.PrivateKey != "" {
		// try to decode as base64, fall back to raw
		keyBytes, err := base64.StdEncoding.DecodeString(b.PrivateKey)
		if err != nil {
			keyBytes = []byte(b.PrivateKey)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	} else if b.Password != "" {
		auths = append(auths, ssh.Password(b.Password))
	} else {
		return nil, fmt.Errorf("no auth method provided; set SFTP_PASSWORD or SFTP_PRIVATE_KEY")
	}

	return &ssh.ClientConfig{
		User:            b.User,
		Auth:            auths,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         b.Timeout,
	}, nil
}

// withClient dials host, runs fn and tears the session down.
func (b *SFTPBackend) withClient(ctx context.Context, host string, fn func(*sftp.Client) error) error {
	config, err := b.clientConfig()
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(host, b.Port)

	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial tcp %s: %w", addr, err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	sshClient := ssh.NewClient(clientConn, chans, reqs)
	defer sshClient.Close()

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("create sftp client: %w", err)
	}
	defer sftpClient.Close()

	return fn(sftpClient)
}

func remotePath(key string) string {
	return "/" + strings.TrimPrefix(key, "/")
}

func wrapSFTPNotFound(err error, host, key string) error {
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: sftp://%s%s", ErrObjectNotFound, host, remotePath(key))
	}
	return err
}

func (b *SFTPBackend) Size(ctx context.Context, host, key string) (int64, error) {
	var size int64
	err := b.withClient(ctx, host, func(c *sftp.Client) error {
		info, err := c.Stat(remotePath(key))
		if err != nil {
			return wrapSFTPNotFound(err, host, key)
		}
		size = info.Size()
		return nil
	})
	return size, err
}

// Open buffers the remote file in memory because the session closes on return.
func (b *SFTPBackend) Open(ctx context.Context, host, key string) (io.ReadCloser, error) {
	var buf bytes.Buffer
	err := b.withClient(ctx, host, func(c *sftp.Client) error {
		f, err := c.Open(remotePath(key))
		if err != nil {
			return wrapSFTPNotFound(err, host, key)
		}
		defer f.Close()
		if _, err := io.Copy(&buf, f); err != nil {
			return fmt.Errorf("read remote file %s: %w", remotePath(key), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return io.NopCloser(&buf), nil
}

// Put ignores metadata; SFTP has nowhere to keep it.
func (b *SFTPBackend) Put(ctx context.Context, host, key string, reader io.Reader, metadata map[string]string) error {
	target := remotePath(key)
	return b.withClient(ctx, host, func(c *sftp.Client) error {
		dir := path.Dir(target)
		if err := mkdirAllSFTP(c, dir); err != nil {
			return fmt.Errorf("ensure remote dir %s: %w", dir, err)
		}

		f, err := c.Create(target)
		if err != nil {
			return fmt.Errorf("create remote file %s: %w", target, err)
		}
		defer f.Close()

		if _, err := io.Copy(f, reader); err != nil {
			return fmt.Errorf("copy to remote file %s: %w", target, err)
		}

		logger.Infof("Successfully uploaded '%s' to %s", target, host)
		return nil
	})
}

// Copy on the same host reuses one session; across hosts it streams through this process.
func (b *SFTPBackend) Copy(ctx context.Context, srcHost, srcKey, dstHost, dstKey string) error {
	if srcHost == dstHost {
		return b.withClient(ctx, srcHost, func(c *sftp.Client) error {
			src, err := c.Open(remotePath(srcKey))
			if err != nil {
				return wrapSFTPNotFound(err, srcHost, srcKey)
			}
			defer src.Close()

			dst := remotePath(dstKey)
			if err := mkdirAllSFTP(c, path.Dir(dst)); err != nil {
				return fmt.Errorf("ensure remote dir %s: %w", path.Dir(dst), err)
			}
			out, err := c.Create(dst)
			if err != nil {
				return fmt.Errorf("create remote file %s: %w", dst, err)
			}
			defer out.Close()

			if _, err := io.Copy(out, src); err != nil {
				return fmt.Errorf("copy %s to %s: %w", remotePath(srcKey), dst, err)
			}
			return nil
		})
	}

	reader, err := b.Open(ctx, srcHost, srcKey)
	if err != nil {
		return err
	}
	defer reader.Close()
	return b.Put(ctx, dstHost, dstKey, reader, nil)
}

func (b *SFTPBackend) Delete(ctx context.Context, host, key string) error {
	return b.withClient(ctx, host, func(c *sftp.Client) error {
		if err := c.Remove(remotePath(key)); err != nil {
			return wrapSFTPNotFound(err, host, key)
		}
		return nil
	})
}

func (b *SFTPBackend) URL(host, key string) string {
	return fmt.Sprintf("sftp://%s%s", host, remotePath(key))
}

// mkdirAllSFTP mimics os.MkdirAll for an SFTP server by creating each segment of the path.
func mkdirAllSFTP(client *sftp.Client, dir string) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}

	parts := strings.Split(dir, "/")
	cur := ""
	if strings.HasPrefix(dir, "/") {
		cur = "/"
	}

	for _, p := range parts {
		if p == "" {
			continue
		}
		cur = path.Join(cur, p)
		if _, err := client.Stat(cur); err != nil {
			if os.IsNotExist(err) {
				if err := client.Mkdir(cur); err != nil {
					return fmt.Errorf("mkdir %s: %w", cur, err)
				}
			} else {
				return fmt.Errorf("stat %s: %w", cur, err)
			}
		}
	}
	return nil
}
