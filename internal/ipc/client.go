package ipc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"resty.dev/v3"
)

func newClient() *resty.Client {
	path := SocketPath()

	client := resty.NewWithClient(&http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", path)
			},
		},
	})

	client.SetBaseURL("http://scrollpaper")
	client.SetTimeout(5 * time.Second)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "scrollpaper")
	return client
}

func SendStatus() (*StatusResponse, error) {
	client := newClient()
	defer client.Close()

	result := StatusResponse{}
	response, err := client.R().SetResult(&result).Get("/status")
	if err != nil {
		return nil, err
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("error requesting status: %s", response.Status())
	}
	return &result, nil
}

func SendStop() error {
	_, err := post("/stop", nil)
	return err
}

func SendNext() error {
	_, err := post("/next", nil)
	return err
}

// SendLoad points every cell of the running wallpaper at dirs.
func SendLoad(dirs []string) (*Response, error) {
	return post("/load", dirs)
}

func post(route string, body any) (*Response, error) {
	client := newClient()
	defer client.Close()

	result := Response{}
	req := client.R().SetResult(&result).SetError(&result)
	if body != nil {
		req.SetBody(body)
	}

	response, err := req.Post(route)
	if err != nil {
		return nil, err
	}
	if response.StatusCode() != http.StatusOK {
		if result.Error != "" {
			return nil, fmt.Errorf("error sending %s: %s", route, result.Error)
		}
		return nil, fmt.Errorf("error sending %s: %s", route, response.Status())
	}
	return &result, nil
}
