package loader_test

import (
	"bytes"
	"testing"

	"github.com/vanderheijden86/pushboard/pkg/loader"
)

func FuzzParseJobs(f *testing.F) {
	f.Add([]byte(`{"id":1,"job_type_symbol":"B","state":"completed","result":"success"}`))
	f.Add([]byte("{\"id\":1}\n{bad\n\n"))
	f.Add([]byte("\xEF\xBB\xBF{\"id\":2}"))
	f.Add([]byte(""))

	f.Fuzz(func(t *testing.T, data []byte) {
		jobs, err := loader.ParseJobsWithOptions(bytes.NewReader(data), loader.ParseOptions{
			WarningHandler: func(string) {},
			BufferSize:     4096,
		})
		if err != nil {
			return
		}
		for _, j := range jobs {
			if j == nil || j.ID == 0 {
				t.Fatalf("parser returned a job without id: %+v", j)
			}
		}
	})
}

func FuzzParsePushes(f *testing.F) {
	f.Add([]byte(`[{"id":1,"jobs":[{"id":2,"platform":"linux64","job_type_symbol":"B"}]}]`))
	f.Add([]byte(`{"results":[]}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		pushes, err := loader.ParsePushesWithOptions(bytes.NewReader(data), loader.ParseOptions{
			WarningHandler: func(string) {},
		})
		if err != nil {
			return
		}
		seen := map[int64]bool{}
		for _, p := range pushes {
			if p.ID == 0 || seen[p.ID] {
				t.Fatalf("invalid or duplicate push id %d", p.ID)
			}
			seen[p.ID] = true
		}
	})
}
