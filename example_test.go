package mimic_test

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/adamwoolhether/mimic"
	"github.com/adamwoolhether/mimic/loop"
	"github.com/adamwoolhether/mimic/mimepart"
	"github.com/adamwoolhether/mimic/profile"
	"github.com/adamwoolhether/mimic/request"
)

// Example performs one synchronous transfer with a browser-shaped
// fingerprint.
func Example() {
	h, err := mimic.NewHandle(
		request.WithURL("https://example.com/"),
		request.WithTimeout(10*time.Second),
	)
	if err != nil {
		log.Fatal(err)
	}
	if err := h.ApplyProfile(profile.ChromeLike()); err != nil {
		log.Fatal(err)
	}

	e, err := mimic.NewExchange()
	if err != nil {
		log.Fatal(err)
	}
	defer e.Close()

	if err := e.Perform(context.Background(), h); err != nil {
		log.Fatal(err)
	}

	res, err := h.Result()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Status, h.Sink().Len())
}

// Example_eventLoop multiplexes several transfers through one loop and
// drains completions as they arrive.
func Example_eventLoop() {
	l, err := mimic.NewLoop(loop.WithMaxConcurrent(8))
	if err != nil {
		log.Fatal(err)
	}
	defer l.Close()

	urls := []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
	}
	for _, u := range urls {
		h, err := mimic.NewHandle(request.WithURL(u), request.WithTimeout(10*time.Second))
		if err != nil {
			log.Fatal(err)
		}
		if err := l.Register(context.Background(), h); err != nil {
			log.Fatal(err)
		}
	}

	for done := 0; done < len(urls); {
		for _, c := range l.Poll(time.Second) {
			done++
			if c.Err != nil {
				fmt.Println(c.ID, c.Err)
				continue
			}
			fmt.Println(c.ID, c.Result.Status, c.Handle.Sink().Len())
		}
	}
}

// Example_multipart uploads a form field alongside file content.
func Example_multipart() {
	b := mimepart.NewBuilder()
	if err := b.AddField("kind", "report"); err != nil {
		log.Fatal(err)
	}
	if err := b.AddFile("doc", "report.csv", "text/csv", bytes.NewReader([]byte("a,b\n1,2\n"))); err != nil {
		log.Fatal(err)
	}
	body, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}

	opts := append([]request.Option{
		request.WithURL("https://example.com/upload"),
		request.WithMethod("POST"),
	}, mimic.MultipartBody(body)...)

	h, err := mimic.NewHandle(opts...)
	if err != nil {
		log.Fatal(err)
	}

	e, err := mimic.NewExchange()
	if err != nil {
		log.Fatal(err)
	}
	defer e.Close()

	if err := e.Perform(context.Background(), h); err != nil {
		log.Fatal(err)
	}
}
