package bundler

import (
	"context"
	"fmt"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/archive"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/config"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/dfrparser"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/indexwriter"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/logger"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/runlog"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/types"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/validation"
	"github.com/ginjaninja78/dfr-chargeback-bundler/pkg/utils"
)

// processFile bundles one source file.
//
// FILE PIPELINE:
//  1. Derive the file date and audit log name from the object name
//  2. Read and parse the extract, filter the candidates and drop the
//     records that cannot be encoded
//  3. Without candidates: write a zero-count audit log and stop
//  4. Validate, encode the header and index file
//  5. Fetch the template and assemble the composite
//  6. Write the artifacts to a scoped work area
//  7. Upload the composite to every sink
//  8. Write the audit log
//
// The returned FileResult is filled as far as processing got, also on error.
func (p *Processor) processFile(ctx context.Context, obj types.SourceObject, opts Options, log *logger.Logger) (types.FileResult, error) {
	fr := types.FileResult{SourceName: obj.Name}

	fileDate, err := dfrparser.ExtractFileDate(obj.Name)
	if err != nil {
		return fr, err
	}
	fr.FileDate = fileDate

	if _, err := p.audit.ObjectName(obj.Name); err != nil {
		return fr, err
	}

	content, err := p.stores.Source.ReadText(ctx, obj.Name)
	if err != nil {
		return fr, fmt.Errorf("failed to read source file: %w", err)
	}

	parsed, err := p.parser.ParseString(content)
	if err != nil {
		return fr, err
	}
	for _, rejected := range parsed.Rejected {
		log.Warn("malformed line skipped", "line", rejected.LineNumber, "fields", rejected.Fields)
	}

	matched := p.filter.Apply(parsed.Candidates)
	eligible, err := p.encodable(matched, log)
	if err != nil {
		return fr, err
	}
	fr.Candidates = parsed.Count()
	fr.Eligible = len(eligible)
	fr.Rejected = len(parsed.Rejected) + len(matched) - len(eligible)

	log.Info("source file parsed",
		"candidates", fr.Candidates,
		"eligible", fr.Eligible,
		"rejected", fr.Rejected)

	if fr.Candidates == 0 {
		return fr, p.writeAudit(ctx, &fr, opts, runlog.Entry{FileDate: fileDate, SourceName: obj.Name})
	}

	if err := validation.ValidateRecords(eligible).Err(); err != nil {
		return fr, err
	}

	// Every artifact of the file shares one instant.
	now := p.clock()
	names := indexwriter.ArtifactNames(p.cfg.Submission.CompanyID, fileDate, now)
	header := []byte(p.encoder.SubmissionHeader(now))
	index := p.encoder.EncodeIndex(eligible, now)

	template, err := p.stores.Template.FetchTemplate(ctx)
	if err != nil {
		return fr, fmt.Errorf("%w: %w", ErrTemplate, err)
	}

	bundle, err := archive.NewAssembler(now).Assemble(
		header,
		archive.Entry{Name: names.Index, Content: index.Content},
		index.Attachments,
		template,
	)
	if err != nil {
		return fr, fmt.Errorf("%w: %w", ErrArchive, err)
	}
	fr.CompositeName = names.Composite

	if err := p.stage(names, header, index.Content, bundle, opts, log); err != nil {
		return fr, fmt.Errorf("%w: %w", ErrArchive, err)
	}

	if opts.DryRun {
		log.Info("dry run, composite not uploaded", "composite", names.Composite, "bytes", len(bundle.Composite))
		return fr, nil
	}

	for _, sink := range p.stores.Sinks {
		dest, err := sink.Upload(ctx, bundle.Composite, names.Composite)
		if err != nil {
			return fr, fmt.Errorf("%w: %w", ErrUpload, err)
		}
		fr.Uploaded = append(fr.Uploaded, dest)
		log.Info("composite uploaded", "sink", sink.Name(), "object", dest)
	}

	return fr, p.writeAudit(ctx, &fr, opts, runlog.Entry{
		FileDate:   fileDate,
		SourceName: obj.Name,
		Records:    eligible,
		Count:      fr.Eligible,
	})
}

// encodable drops the records whose sequence or entity number does not fit
// the index layout. Under the "fail" malformed line policy the first such
// record fails the file instead.
func (p *Processor) encodable(records []types.ChargebackRecord, log *logger.Logger) ([]types.ChargebackRecord, error) {
	valid, rejected := validation.SplitRecords(records)
	if rejected.IsValid() {
		return valid, nil
	}
	if p.cfg.Processing.MalformedLines == config.MalformedFail {
		return nil, rejected.Err()
	}
	for _, e := range rejected.Errors {
		log.Warn("unencodable record skipped", "line", e.LineNumber, "field", e.Field, "rule", e.Rule)
	}
	return valid, nil
}

// stage writes the artifacts of one file to a fresh work area, keeps a
// copy when asked to, and removes the work area again.
func (p *Processor) stage(names indexwriter.Names, header, index []byte, bundle *archive.Bundle, opts Options, log *logger.Logger) error {
	work, err := utils.NewWorkArea(p.cfg.Processing.WorkDir, names.Composite)
	if err != nil {
		return err
	}
	defer func() {
		if err := work.Cleanup(); err != nil {
			log.Warn("work area not removed", "dir", work.Dir, "error", err)
		}
	}()

	artifacts := []struct {
		name string
		data []byte
	}{
		{names.Header, header},
		{names.Index, index},
		{names.Composite, bundle.Composite},
	}
	for _, a := range artifacts {
		if _, err := work.Write(a.name, a.data); err != nil {
			return err
		}
	}
	log.Debug("artifacts staged", "dir", work.Dir, "files", work.Files())

	if opts.KeepDir == "" {
		return nil
	}
	kept, err := work.Keep(opts.KeepDir)
	if err != nil {
		return err
	}
	log.Info("artifacts kept", "paths", kept)
	return nil
}

func (p *Processor) writeAudit(ctx context.Context, fr *types.FileResult, opts Options, e runlog.Entry) error {
	if opts.DryRun {
		return nil
	}
	name, err := p.audit.Write(ctx, e)
	if err != nil {
		return err
	}
	fr.LogObject = name
	return nil
}
