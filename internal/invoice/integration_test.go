package invoice_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/zombor/invoice-categorizer/internal/categorize"
	"github.com/zombor/invoice-categorizer/internal/invoice"
	"github.com/zombor/invoice-categorizer/internal/metrics"
	"github.com/zombor/invoice-categorizer/internal/scanning"
)

var anyPath = regexp.MustCompile(".*")

var _ = Describe("Integration", func() {
	var (
		tempDir   string
		db        *invoice.BoltDB
		store     *invoice.LocalStorage
		registry  *prometheus.Registry
		processor *invoice.Processor
		service   *invoice.Service
		server    *invoice.Server
		ghServer  *ghttp.Server
	)

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()

		var err error
		db, err = invoice.NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		store, err = invoice.NewLocalStorage(filepath.Join(tempDir, "uploads"))
		Expect(err).NotTo(HaveOccurred())

		model, err := categorize.Build(categorize.DefaultSamples())
		Expect(err).NotTo(HaveOccurred())

		registry = prometheus.NewRegistry()
		recorder, err := metrics.NewRecorder(registry)
		Expect(err).NotTo(HaveOccurred())

		processor = invoice.NewProcessor(model, scanning.NewRouter(nil), invoice.WithRecorder(recorder), invoice.WithWorkers(2))
		service = invoice.NewService(db, processor, store)
		server = invoice.NewServer(service, invoice.BasicAuth{})
		server.HandleMetrics(metrics.Handler(registry))

		ghServer = ghttp.NewServer()
	})

	AfterEach(func() {
		ghServer.Close()
		db.Close()
	})

	It("should upload invoices, classify them and report the counts", func() {
		ghServer.RouteToHandler(http.MethodPost, anyPath, server.ServeHTTP)
		ghServer.RouteToHandler(http.MethodGet, anyPath, server.ServeHTTP)
		ghServer.RouteToHandler(http.MethodDelete, anyPath, server.ServeHTTP)

		for name, text := range map[string]string{
			"trip.txt":  "uber ride to airport\nhotel accommodation 199.99",
			"lunch.txt": "burger and fries\ncloud compute credits 120.00",
		} {
			body := &bytes.Buffer{}
			writer := multipart.NewWriter(body)
			part, err := writer.CreateFormFile("file", name)
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write([]byte(text))
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.Close()).To(Succeed())

			resp, err := http.Post(ghServer.URL()+"/api/documents", writer.FormDataContentType(), body)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		}

		resp, err := http.Get(ghServer.URL() + "/api/report")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())

		var report invoice.Summary
		Expect(json.Unmarshal(respBody, &report)).To(Succeed())
		Expect(report.Documents).To(Equal(2))
		Expect(report.Counts.Map()).To(Equal(map[categorize.Category]int{
			categorize.Travel:   2,
			categorize.Food:     1,
			categorize.Software: 1,
			categorize.Office:   0,
			categorize.Other:    0,
		}))
		Expect(report.Totals[0].Amount.String()).To(Equal("199.99"))
		Expect(report.Totals[2].Amount.String()).To(Equal("120"))

		metricsResp, err := http.Get(ghServer.URL() + "/metrics")
		Expect(err).NotTo(HaveOccurred())
		defer metricsResp.Body.Close()
		metricsBody, err := io.ReadAll(metricsResp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(metricsBody)).To(ContainSubstring(`invoice_lines_classified_total{category="travel"} 2`))

		docs, err := db.ListDocuments()
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(2))
		for _, d := range docs {
			_, err := store.Get(d.Filename)
			Expect(err).NotTo(HaveOccurred())
		}

		req, err := http.NewRequest(http.MethodDelete, ghServer.URL()+"/api/documents/"+docs[0].ID, nil)
		Expect(err).NotTo(HaveOccurred())
		delResp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		delResp.Body.Close()
		Expect(delResp.StatusCode).To(Equal(http.StatusNoContent))

		_, err = store.Get(docs[0].Filename)
		Expect(err).To(HaveOccurred())
	})

	It("should categorize a folder and record the run", func() {
		folder := filepath.Join(tempDir, "invoices")
		Expect(os.Mkdir(folder, 0755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(folder, "a.txt"), []byte("uber ride to airport\nhotel accommodation"), 0644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(folder, "b.txt"), []byte("burger and fries\ncloud compute credits"), 0644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(folder, "blank.txt"), []byte("\n\n"), 0644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(folder, "photo.png"), []byte("not processed"), 0644)).To(Succeed())

		src, err := invoice.OpenFolder(folder)
		Expect(err).NotTo(HaveOccurred())

		docs, err := processor.Run(context.Background(), src)
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(3))
		Expect(docs[2].Name).To(Equal("blank.txt"))
		Expect(docs[2].Records).To(BeEmpty())

		run, err := service.RecordRun(folder, docs)
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Report.Counts.Count(categorize.Travel)).To(Equal(2))
		Expect(run.Report.Lines).To(Equal(4))

		runs, err := service.ListRuns()
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].Source).To(Equal(folder))

		expected := `
# HELP invoice_documents_processed_total Total processed documents by outcome
# TYPE invoice_documents_processed_total counter
invoice_documents_processed_total{outcome="empty"} 1
invoice_documents_processed_total{outcome="parsed"} 2
`
		Expect(testutil.GatherAndCompare(registry, strings.NewReader(expected), "invoice_documents_processed_total")).To(Succeed())
	})
})
