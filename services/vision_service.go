package services

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// VisionService runs a cheap Rekognition label pass before a capture goes to
// the paid analysis model, so a photo of a parking lot gets bounced early.
type VisionService struct {
	client *rekognition.Client
}

// Labels that count as "this is a meal photo", directly or via parents.
var foodLabels = map[string]struct{}{
	"Food":      {},
	"Meal":      {},
	"Dish":      {},
	"Beverage":  {},
	"Drink":     {},
	"Fruit":     {},
	"Vegetable": {},
	"Dessert":   {},
	"Snack":     {},
	"Bread":     {},
	"Plate":     {},
}

func NewVisionService(ctx context.Context) (*VisionService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		return nil, err
	}
	return &VisionService{client: rekognition.NewFromConfig(cfg)}, nil
}

// LooksLikeFood returns whether any detected label lands in the food set,
// along with the labels seen (for logging).
func (v *VisionService) LooksLikeFood(ctx context.Context, image []byte) (bool, []string, error) {
	out, err := v.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(10),
		MinConfidence: aws.Float32(60),
	})
	if err != nil {
		return false, nil, err
	}

	var seen []string
	found := false
	for _, l := range out.Labels {
		if l.Name == nil {
			continue
		}
		seen = append(seen, *l.Name)
		if _, ok := foodLabels[*l.Name]; ok {
			found = true
		}
		for _, p := range l.Parents {
			if p.Name == nil {
				continue
			}
			if _, ok := foodLabels[*p.Name]; ok {
				found = true
			}
		}
	}
	return found, seen, nil
}
