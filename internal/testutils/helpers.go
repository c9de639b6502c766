package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/conneroisu/blockwright/internal/config"
	"github.com/conneroisu/blockwright/internal/registry"
	"github.com/stretchr/testify/require"
)

// Paths of the fixture components.
const (
	RootPath          = "page-sections/builders/custom-section"
	ButtonPath        = "building-blocks/core-elements/button"
	HeadingPath       = "building-blocks/core-elements/heading"
	ImagePath         = "building-blocks/core-elements/image"
	TestimonialPath   = "building-blocks/core-elements/testimonial"
	CardPath          = "building-blocks/wrappers/card"
	AccordionPath     = "building-blocks/wrappers/accordion"
	AccordionItemPath = "building-blocks/wrappers/accordion/accordion-item"
	CarouselPath      = "building-blocks/wrappers/carousel"
	CarouselSlidePath = "building-blocks/wrappers/carousel/carousel-slide"
)

// FixturePayload is a small but complete registry payload covering plain
// elements, a generic wrapper, and two list wrappers with virtual items.
const FixturePayload = `
components:
  - path: page-sections/builders/custom-section
    category: builders
    name: custom-section
    displayName: Custom Section
    fileName: CustomSection.astro
    supportsSlots: true
    inputs:
      contentSections:
        type: array
        label: Content
    slots:
      - propName: contentSections
        label: Content
        allowedComponents: []
  - path: building-blocks/core-elements/button
    category: core-elements
    name: button
    displayName: Button
    description: A clickable call to action
    inputs:
      text:
        type: text
        label: Text
      link:
        type: url
        label: Link
      variant:
        type: select
        options:
          values: [primary, secondary]
    structureValue:
      label: Button
      value:
        _component: building-blocks/core-elements/button
        text: Click me
        link: /
        variant: primary
  - path: building-blocks/core-elements/heading
    category: core-elements
    name: heading
    displayName: Heading
    inputs:
      text:
        type: text
      level:
        type: number
    structureValue:
      value:
        _component: building-blocks/core-elements/heading
        text: Heading
        level: 2
  - path: building-blocks/core-elements/image
    category: core-elements
    name: image
    displayName: Image
    inputs:
      source:
        type: image
        label: Image source
      alt:
        type: text
    structureValue:
      value:
        source: /placeholder.png
        alt: ""
  - path: building-blocks/core-elements/testimonial
    category: core-elements
    name: testimonial
    displayName: Testimonial
    inputs:
      text:
        type: textarea
      authorName:
        type: text
        label: Author name
      authorDescription:
        type: text
    structureValue:
      value:
        text: Great product
        authorName: Jane Doe
        authorDescription: CEO
  - path: building-blocks/wrappers/card
    category: wrappers
    name: card
    displayName: Card
    supportsSlots: true
    inputs:
      title:
        type: text
        label: Title
      contentSections:
        type: array
    structureValue:
      value:
        title: Card title
        contentSections: []
    slots:
      - propName: contentSections
        label: Content
        allowedComponents:
          - building-blocks/core-elements/*
  - path: building-blocks/wrappers/accordion
    category: wrappers
    name: accordion
    displayName: Accordion
    supportsSlots: true
    inputs:
      items:
        type: array
        label: Items
        options:
          structures: _structures.items
    structureValue:
      value:
        items: []
      _structures:
        items:
          values:
            - label: Accordion Item
              value:
                title: ""
              _inputs:
                title:
                  type: text
                  label: Item title
    slots:
      - propName: items
        label: Items
        allowedComponents:
          - building-blocks/wrappers/accordion/accordion-item
        allowAsProp: true
        propType: array
        propLabel: Items data
  - path: building-blocks/wrappers/accordion/accordion-item
    category: wrappers
    name: accordion-item
    displayName: Accordion Item
    fileName: AccordionItem.astro
    isVirtual: true
    supportsSlots: true
    inputs:
      title:
        type: text
      contentSections:
        type: array
    structureValue:
      value:
        title: Item
    slots:
      - propName: contentSections
        label: Content
        allowedComponents:
          - building-blocks/core-elements/*
  - path: building-blocks/wrappers/carousel
    category: wrappers
    name: carousel
    displayName: Carousel
    supportsSlots: true
    inputs:
      slides:
        type: array
      autoplay:
        type: switch
    structureValue:
      value:
        autoplay: false
    slots:
      - propName: slides
        label: Slides
        allowedComponents:
          - building-blocks/wrappers/carousel/carousel-slide
  - path: building-blocks/wrappers/carousel/carousel-slide
    category: wrappers
    name: carousel-slide
    displayName: Carousel Slide
    isVirtual: true
    supportsSlots: true
    inputs:
      contentSections:
        type: array
    slots:
      - propName: contentSections
        label: Content
        allowedComponents:
          - building-blocks/core-elements/*
metadataMap:
  building-blocks/wrappers/accordion:
    supportsSlots: true
    fallbackFor: items
    childComponent:
      name: AccordionItem
      props: [title, contentSections/slot]
  building-blocks/wrappers/carousel:
    supportsSlots: true
    fallbackFor: slides
    childComponent:
      name: CarouselSlide
      props: [contentSections/slot]
  building-blocks/wrappers/card:
    supportsSlots: true
nestedBlockProperties: [contentSections, items, slides]
pageSectionCategories: [heroes, features]
`

// Payload decodes FixturePayload.
func Payload(t testing.TB) *registry.Payload {
	t.Helper()

	p, err := registry.ParsePayload([]byte(FixturePayload))
	require.NoError(t, err)

	return p
}

// Registry builds a registry from FixturePayload.
func Registry(t testing.TB) *registry.Registry {
	t.Helper()

	r, err := registry.New(Payload(t))
	require.NoError(t, err)

	return r
}

// Descriptor returns the fixture descriptor at path.
func Descriptor(t testing.TB, r *registry.Registry, path string) *registry.Descriptor {
	t.Helper()

	d, ok := r.Get(path)
	require.True(t, ok, "fixture component %s missing", path)

	return d
}

// WritePayloadFile writes FixturePayload into dir and returns its path.
func WritePayloadFile(t testing.TB, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "payload.yml")
	require.NoError(t, os.WriteFile(path, []byte(FixturePayload), 0o644))

	return path
}

// CreateTempProject creates a directory holding a payload and a config file
// pointing at it.
func CreateTempProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	WritePayloadFile(t, dir)

	cfg := "registry:\n  payload: payload.yml\nexport:\n  output_dir: dist\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".blockwright.yml"), []byte(cfg), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dist"), 0o755))

	return dir
}

// CreateTestConfig returns a configuration with every default applied and
// the payload pointing into projectDir.
func CreateTestConfig(projectDir string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "localhost",
			Port: 0,
		},
		Registry: config.RegistryConfig{
			Payload:       filepath.Join(projectDir, "payload.yml"),
			RootComponent: config.DefaultRootComponent,
		},
		Builder: config.BuilderConfig{
			DefaultExposed: config.DefaultExposed(),
		},
		Export: config.ExportConfig{
			OutputDir:    filepath.Join(projectDir, "dist"),
			DefaultAlias: "@components",
			Aliases:      config.DefaultAliases(),
		},
		Logging: config.LoggingConfig{
			Level:  "error",
			Format: "text",
		},
	}
}
