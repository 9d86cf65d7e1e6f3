package registry

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-research/internal/model"
	"github.com/sells-group/market-research/pkg/notion"
)

// LoadFeatures queries a Notion rubric database for its active rows and
// returns them as feature specs in database order.
func LoadFeatures(ctx context.Context, client notion.Client, dbID string) ([]model.FeatureSpec, error) {
	pages, err := notion.QueryAll(ctx, client, dbID, notion.ActiveFilter())
	if err != nil {
		return nil, eris.Wrap(err, "registry: load features")
	}

	var features []model.FeatureSpec
	for _, p := range pages {
		f, err := parseFeaturePage(p)
		if err != nil {
			zap.L().Warn("registry: skipping malformed feature page",
				zap.String("page_id", string(p.ID)),
				zap.Error(err),
			)
			continue
		}
		features = append(features, f)
	}
	if len(features) == 0 {
		return nil, eris.Errorf("registry: no active features in database %s", dbID)
	}
	return features, nil
}

func parseFeaturePage(p notionapi.Page) (model.FeatureSpec, error) {
	var f model.FeatureSpec
	if tp, ok := p.Properties["Name"].(*notionapi.TitleProperty); ok {
		f.Name = strings.TrimSpace(notion.PlainText(tp.Title))
	}
	f.Definition = richText(p, "Definition")
	f.YesIndicators = richText(p, "Yes Indicators")
	f.NoIndicators = richText(p, "No Indicators")

	if f.Name == "" {
		return f, eris.New("missing Name property")
	}
	return f, nil
}

func richText(p notionapi.Page, prop string) string {
	if rtp, ok := p.Properties[prop].(*notionapi.RichTextProperty); ok {
		return strings.TrimSpace(notion.PlainText(rtp.RichText))
	}
	return ""
}
